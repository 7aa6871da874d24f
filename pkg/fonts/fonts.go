// Package fonts provides the typefaces used for poster text.
//
// The Go font family is embedded through golang.org/x/image/font/gofont,
// so posters render without any system fonts installed. Additional TrueType
// or OpenType files can be loaded by path, which is how CJK or decorative
// fonts are added.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Font is a parsed typeface and a display name.
type Font struct {
	Name string
	Font *opentype.Font
}

// embedded lists the built-in faces in the order Default returns them.
var embedded = []struct {
	name string
	data []byte
}{
	{"Go Regular", goregular.TTF},
	{"Go Bold", gobold.TTF},
	{"Go Italic", goitalic.TTF},
	{"Go Medium", gomedium.TTF},
	{"Go Mono", gomono.TTF},
	{"Go Smallcaps", gosmallcaps.TTF},
}

// Parsed once on first access.
var (
	defaultSet  []Font
	defaultErr  error
	defaultOnce sync.Once
)

// Default returns the embedded Go font family.
func Default() ([]Font, error) {
	defaultOnce.Do(func() {
		for _, e := range embedded {
			f, err := Parse(e.name, e.data)
			if err != nil {
				defaultErr = err
				return
			}
			defaultSet = append(defaultSet, f)
		}
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]Font(nil), defaultSet...), nil
}

// Parse parses TrueType or OpenType data. If name is empty the font's own
// full name is used.
func Parse(name string, data []byte) (Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return Font{}, fmt.Errorf("parse font %q: %w", name, err)
	}
	if name == "" {
		name, _ = f.Name(nil, sfnt.NameIDFull)
	}
	return Font{Name: name, Font: f}, nil
}

// LoadFile reads and parses a font file, naming it after its full name or,
// failing that, the file name.
func LoadFile(path string) (Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Font{}, fmt.Errorf("read font: %w", err)
	}
	f, err := Parse("", data)
	if err != nil {
		return Font{}, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Load returns the fonts at paths, or Default when paths is empty.
func Load(paths []string) ([]Font, error) {
	if len(paths) == 0 {
		return Default()
	}
	out := make([]Font, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Names returns the display names of fs.
func Names(fs []Font) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

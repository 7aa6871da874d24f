package errors

import (
	"net/url"
	"strings"
	"unicode"
)

const maxKeywordLength = 100

// ValidateKeyword checks a search keyword. Keywords name directories in
// local sources and run directories, so path syntax is rejected.
func ValidateKeyword(kw string) error {
	if strings.TrimSpace(kw) == "" {
		return New(ErrCodeInvalidKeyword, "keyword cannot be empty")
	}
	if len(kw) > maxKeywordLength {
		return New(ErrCodeInvalidKeyword, "keyword too long (max %d characters)", maxKeywordLength)
	}
	for _, r := range kw {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKeyword, "keyword contains invalid control characters")
		}
	}
	if strings.ContainsAny(kw, `/\`) || kw == "." || kw == ".." {
		return New(ErrCodeInvalidKeyword, "keyword cannot contain path separators: %q", kw)
	}
	return nil
}

// ValidateKeywords checks a keyword list; at least one keyword is required.
func ValidateKeywords(kws []string) error {
	if len(kws) == 0 {
		return New(ErrCodeInvalidKeyword, "at least one keyword is required")
	}
	for _, kw := range kws {
		if err := ValidateKeyword(kw); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePath checks a user-supplied filesystem path.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}
	return nil
}

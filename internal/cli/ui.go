package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/postermill/pkg/pipeline"
)

// stdout receives all status output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

var (
	colorAccent = lipgloss.Color("36")  // teal
	colorOK     = lipgloss.Color("35")  // green
	colorWarn   = lipgloss.Color("220") // amber
	colorFail   = lipgloss.Color("167") // soft red
	colorLink   = lipgloss.Color("75")  // light blue
	colorValue  = lipgloss.Color("255")
	colorLabel  = lipgloss.Color("245")
	colorMuted  = lipgloss.Color("240")
)

var (
	// StyleLink renders URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorLink).Underline(true)
	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorMuted)
	// StyleValue renders data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorValue)
	// StyleWarning renders warning text.
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand     = lipgloss.NewStyle().Foreground(colorLink)
	styleLabel       = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
)

// status icons, each with its color
var (
	markOK   = lipgloss.NewStyle().Foreground(colorOK).Render("✓")
	markFail = lipgloss.NewStyle().Foreground(colorFail).Render("✗")
	markWarn = lipgloss.NewStyle().Foreground(colorWarn).Render("!")
	markInfo = lipgloss.NewStyle().Foreground(colorLabel).Render("›")
	markFile = StyleDim.Render("→")
)

func line(s string) { fmt.Fprintln(stdout, s) }

func printSuccess(format string, args ...any) {
	line(markOK + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	line(markFail + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	line(markWarn + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	line(markInfo + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	line("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written path.
func printFile(path string) {
	line("  " + markFile + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	line(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// printBatchStats prints pool size, poster counts and stage timings on one line.
func printBatchStats(r *pipeline.Result) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d images", r.Stats.Images)),
		StyleDim.Render(fmt.Sprintf("%d posters", r.Produced)),
	}
	if r.Discarded > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d discarded", r.Discarded)))
	}
	for _, stage := range []struct {
		name string
		d    time.Duration
	}{
		{"load", r.Stats.LoadTime},
		{"generate", r.Stats.GenerateTime},
		{"export", r.Stats.ExportTime},
	} {
		if stage.d > 0 {
			parts = append(parts, StyleDim.Render(stage.name+" "+stage.d.Round(time.Millisecond).String()))
		}
	}
	line("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	line(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { line("") }

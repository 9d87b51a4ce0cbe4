package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives all user-facing output; tests swap it out.
var stdout io.Writer = os.Stdout

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError   = lipgloss.NewStyle().Foreground(colorRed)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconInfo  = "›"
	iconArrow = "→"
)

// severity picks the icon and colours of a status line.
type severity struct {
	icon      string
	iconStyle lipgloss.Style
	textStyle lipgloss.Style
}

var (
	sevSuccess = severity{"✓", StyleSuccess, lipgloss.NewStyle()}
	sevWarning = severity{"!", StyleWarning, StyleWarning}
	sevError   = severity{"✗", StyleError, lipgloss.NewStyle()}
	sevInfo    = severity{iconInfo, lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()}
)

func (s severity) println(format string, args ...any) {
	fmt.Fprintln(stdout, s.iconStyle.Render(s.icon)+" "+s.textStyle.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { sevSuccess.println(format, args...) }
func printWarning(format string, args ...any) { sevWarning.println(format, args...) }
func printError(format string, args ...any)   { sevError.println(format, args...) }
func printInfo(format string, args ...any)    { sevInfo.println(format, args...) }

// printDetail prints an indented secondary line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints "N nodes · M links · K rejected · cached" for a
// finished layout or render.
func printStats(nodes, links, rejected int, cached bool) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d nodes", nodes)),
		StyleDim.Render(fmt.Sprintf("%d links", links)),
	}
	if rejected > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d rejected", rejected)))
	}
	if cached {
		parts = append(parts, StyleSuccess.Render("cached"))
	} else {
		parts = append(parts, StyleDim.Render("fresh"))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

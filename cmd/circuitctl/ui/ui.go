// Package ui renders circuitctl's terminal output: colorized step
// lines for the debug stepper, tables for profile summaries, and the
// interactive-vs-plain detection that decides whether colors are
// worth emitting at all.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	AccentStyle = lipgloss.NewStyle().Foreground(purple)
	OKStyle     = lipgloss.NewStyle().Foreground(green)
	FailStyle   = lipgloss.NewStyle().Foreground(red)
	WaitStyle   = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle  = lipgloss.NewStyle().Foreground(dim)
	LabelStyle  = lipgloss.NewStyle().Foreground(dim)
)

func Accent(s string) string { return AccentStyle.Render(s) }
func Muted(s string) string  { return MutedStyle.Render(s) }
func OK(s string) string     { return OKStyle.Render(s) }
func Fail(s string) string   { return FailStyle.Render(s) }
func Wait(s string) string   { return WaitStyle.Render(s) }

func SuccessMsg(format string, a ...any) string {
	return OKStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return FailStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

// Pair holds one key-value row for KeyValues.
type Pair struct {
	key   string
	value string
}

func KV(key, value string) Pair { return Pair{key: key, value: value} }

// KeyValues renders aligned "key:  value" lines.
func KeyValues(indent string, pairs ...Pair) string {
	maxLen := 0
	for _, p := range pairs {
		if len(p.key) > maxLen {
			maxLen = len(p.key)
		}
	}

	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p.key+":")
		sb.WriteString(indent + LabelStyle.Render(label) + " " + p.value + "\n")
	}
	return sb.String()
}

// Table renders a styled table with rounded borders.
func Table(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	oddStyle := cellStyle.Foreground(dim)
	evenStyle := cellStyle

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenStyle
			default:
				return oddStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

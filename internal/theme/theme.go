// Package theme holds the lipgloss styles used by the datagate command line
// when it prints datasets and schemas to a terminal.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/datagate/internal/infer"
)

// Theme holds lipgloss.Style values for every element the CLI renders.
type Theme struct {
	Name string

	// Headings
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style

	// Tables
	Border lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Null   lipgloss.Style

	// Inferred column types
	Types map[infer.Type]lipgloss.Style

	// General
	ErrorText lipgloss.Style
	MutedText lipgloss.Style
}

// TypeStyle returns the style for an inferred type, falling back to Cell.
func (t *Theme) TypeStyle(typ infer.Type) lipgloss.Style {
	if s, ok := t.Types[typ]; ok {
		return s
	}
	return t.Cell
}

func fg(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

// newDefaultTheme builds the Default dark theme.
func newDefaultTheme() *Theme {
	return &Theme{
		Name: "default",

		Title: fg("#569CD6").Bold(true),
		Label: fg("#808080"),
		Value: fg("#DCDCAA"),

		Border: fg("#3C3C3C"),
		Header: fg("#569CD6").Bold(true).Padding(0, 1),
		Cell:   fg("#D4D4D4").Padding(0, 1),
		Null:   fg("#808080").Italic(true).Padding(0, 1),

		Types: map[infer.Type]lipgloss.Style{
			infer.TypeString:  fg("#CE9178"),
			infer.TypeInteger: fg("#B5CEA8"),
			infer.TypeFloat:   fg("#B5CEA8"),
			infer.TypeBoolean: fg("#569CD6"),
			infer.TypeDate:    fg("#4EC9B0"),
		},

		ErrorText: fg("#F44747").Bold(true),
		MutedText: fg("#808080"),
	}
}

// newLightTheme builds a theme for light terminal backgrounds.
func newLightTheme() *Theme {
	return &Theme{
		Name: "light",

		Title: fg("#0000FF").Bold(true),
		Label: fg("#6A6A6A"),
		Value: fg("#795E26"),

		Border: fg("#CECECE"),
		Header: fg("#0000FF").Bold(true).Padding(0, 1),
		Cell:   fg("#1E1E1E").Padding(0, 1),
		Null:   fg("#A0A0A0").Italic(true).Padding(0, 1),

		Types: map[infer.Type]lipgloss.Style{
			infer.TypeString:  fg("#A31515"),
			infer.TypeInteger: fg("#098658"),
			infer.TypeFloat:   fg("#098658"),
			infer.TypeBoolean: fg("#0000FF"),
			infer.TypeDate:    fg("#267F99"),
		},

		ErrorText: fg("#CD3131").Bold(true),
		MutedText: fg("#6A6A6A"),
	}
}

// newMonokaiTheme builds the Monokai theme.
func newMonokaiTheme() *Theme {
	return &Theme{
		Name: "monokai",

		Title: fg("#F92672").Bold(true),
		Label: fg("#75715E"),
		Value: fg("#E6DB74"),

		Border: fg("#49483E"),
		Header: fg("#66D9EF").Bold(true).Padding(0, 1),
		Cell:   fg("#F8F8F2").Padding(0, 1),
		Null:   fg("#75715E").Italic(true).Padding(0, 1),

		Types: map[infer.Type]lipgloss.Style{
			infer.TypeString:  fg("#E6DB74"),
			infer.TypeInteger: fg("#AE81FF"),
			infer.TypeFloat:   fg("#AE81FF"),
			infer.TypeBoolean: fg("#66D9EF"),
			infer.TypeDate:    fg("#A6E22E"),
		},

		ErrorText: fg("#F92672").Bold(true),
		MutedText: fg("#75715E"),
	}
}

// newPlainTheme builds a theme without colors, for pipes and logs.
func newPlainTheme() *Theme {
	plain := lipgloss.NewStyle()
	return &Theme{
		Name: "plain",

		Title: plain,
		Label: plain,
		Value: plain,

		Border: plain,
		Header: plain.Padding(0, 1),
		Cell:   plain.Padding(0, 1),
		Null:   plain.Padding(0, 1),

		Types: map[infer.Type]lipgloss.Style{},

		ErrorText: plain,
		MutedText: plain,
	}
}

// Themes maps theme names to their definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
	"plain":   newPlainTheme(),
}

// Default returns the default theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the named theme, or the default for an unknown name.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}

package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme defines the colors of the live view and of static plots.
type Theme struct {
	Name   string
	Title  lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
	Accent lipgloss.Color
	Warn   lipgloss.Color
	// Curves colors one column or link per entry, cycling when there are
	// more series than colors.
	Curves []lipgloss.Color
	Ansi   []asciigraph.AnsiColor
}

var (
	ThemeOcean = Theme{
		Name:   "ocean",
		Title:  lipgloss.Color("#00a8cc"),
		Text:   lipgloss.Color("#e0f0ff"),
		Muted:  lipgloss.Color("#4488aa"),
		Accent: lipgloss.Color("#ffd700"),
		Warn:   lipgloss.Color("#ff4444"),
		Curves: []lipgloss.Color{"#ff6b6b", "#00a8cc", "#5fd068", "#feca57"},
		Ansi:   []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Cyan, asciigraph.Green, asciigraph.Yellow},
	}

	ThemeRetro = Theme{
		Name:   "retro",
		Title:  lipgloss.Color("#00ff00"),
		Text:   lipgloss.Color("#00ff00"),
		Muted:  lipgloss.Color("#005500"),
		Accent: lipgloss.Color("#88ff88"),
		Warn:   lipgloss.Color("#ffff00"),
		Curves: []lipgloss.Color{"#00ff00", "#88ff88", "#00cc00", "#ccffcc"},
		Ansi:   []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Lime, asciigraph.Yellow, asciigraph.White},
	}

	ThemeMinimal = Theme{
		Name:   "minimal",
		Title:  lipgloss.Color("#ffffff"),
		Text:   lipgloss.Color("#ffffff"),
		Muted:  lipgloss.Color("#888888"),
		Accent: lipgloss.Color("#0088ff"),
		Warn:   lipgloss.Color("#ffaa00"),
		Curves: []lipgloss.Color{"#ffffff", "#0088ff", "#aaaaaa", "#ffaa00"},
		Ansi:   []asciigraph.AnsiColor{asciigraph.White, asciigraph.Blue, asciigraph.Cyan, asciigraph.Yellow},
	}

	CurrentTheme = ThemeOcean

	Themes = []Theme{ThemeOcean, ThemeRetro, ThemeMinimal}
)

// GetTheme returns a theme by name, falling back to the ocean theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeOcean
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}

func (t Theme) curve(i int) lipgloss.Color { return t.Curves[i%len(t.Curves)] }

func (t Theme) ansi(n int) []asciigraph.AnsiColor {
	out := make([]asciigraph.AnsiColor, n)
	for i := range out {
		out[i] = t.Ansi[i%len(t.Ansi)]
	}
	return out
}

package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme/palette helpers.
//
// Every palette entry carries a light and a dark variant so the frame
// stays readable regardless of the terminal background. A theme is a
// palette swap over the same layout; nothing outside this file knows
// which theme is active.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	defaultColorBorder      lipgloss.TerminalColor = ac("250", "240")
	defaultColorBorderFocus lipgloss.TerminalColor = ac("27", "39")
	defaultColorTitle       lipgloss.TerminalColor = ac("27", "62")
	defaultColorMuted       lipgloss.TerminalColor = ac("240", "243")
	defaultColorSelected    lipgloss.TerminalColor = ac("235", "229")
	defaultColorPriority    lipgloss.TerminalColor = ac("166", "215")
	defaultColorProject     lipgloss.TerminalColor = ac("28", "114")
	defaultColorContext     lipgloss.TerminalColor = ac("30", "80")
	defaultColorMeta        lipgloss.TerminalColor = ac("240", "245")
	defaultColorOverdue     lipgloss.TerminalColor = ac("160", "203")
	defaultColorStatusOK    lipgloss.TerminalColor = ac("28", "70")
	defaultColorStatusErr   lipgloss.TerminalColor = ac("124", "9")
	defaultColorPrompt      lipgloss.TerminalColor = ac("130", "220")

	colorBorder      = defaultColorBorder
	colorBorderFocus = defaultColorBorderFocus
	colorTitle       = defaultColorTitle
	colorMuted       = defaultColorMuted
	colorSelected    = defaultColorSelected
	colorPriority    = defaultColorPriority
	colorProject     = defaultColorProject
	colorContext     = defaultColorContext
	colorMeta        = defaultColorMeta
	colorOverdue     = defaultColorOverdue
	colorStatusOK    = defaultColorStatusOK
	colorStatusErr   = defaultColorStatusErr
	colorPrompt      = defaultColorPrompt

	currentTheme = "default"
)

func resetPaletteToDefaults() {
	colorBorder = defaultColorBorder
	colorBorderFocus = defaultColorBorderFocus
	colorTitle = defaultColorTitle
	colorMuted = defaultColorMuted
	colorSelected = defaultColorSelected
	colorPriority = defaultColorPriority
	colorProject = defaultColorProject
	colorContext = defaultColorContext
	colorMeta = defaultColorMeta
	colorOverdue = defaultColorOverdue
	colorStatusOK = defaultColorStatusOK
	colorStatusErr = defaultColorStatusErr
	colorPrompt = defaultColorPrompt
}

func themeNames() []string {
	return []string{"default", "dracula", "gruvbox", "solarized", "mono"}
}

// setTheme swaps the palette. Unknown names leave it untouched and
// report false.
func setTheme(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		currentTheme = "default"
		resetPaletteToDefaults()
	case "dracula":
		currentTheme = "dracula"
		resetPaletteToDefaults()
		colorBorder = ac("#c9c9c1", "#44475a")
		colorBorderFocus = ac("#6c4aa6", "#bd93f9")
		colorTitle = ac("#6c4aa6", "#bd93f9")
		colorMuted = ac("#4b5563", "#6272a4")
		colorSelected = ac("#282a36", "#f1fa8c")
		colorPriority = ac("#b83280", "#ff79c6")
		colorProject = ac("#15803d", "#50fa7b")
		colorContext = ac("#0ea5e9", "#8be9fd")
		colorMeta = ac("#475569", "#6272a4")
		colorOverdue = ac("#b91c1c", "#ff5555")
		colorStatusOK = ac("#15803d", "#50fa7b")
		colorStatusErr = ac("#b91c1c", "#ff5555")
		colorPrompt = ac("#b45309", "#f1fa8c")
	case "gruvbox":
		currentTheme = "gruvbox"
		resetPaletteToDefaults()
		colorBorder = ac("#d5c4a1", "#3c3836")
		colorBorderFocus = ac("#b57614", "#d79921")
		colorTitle = ac("#b57614", "#d79921")
		colorMuted = ac("#665c54", "#928374")
		colorSelected = ac("#3c3836", "#fabd2f")
		colorPriority = ac("#af3a03", "#fe8019")
		colorProject = ac("#79740e", "#b8bb26")
		colorContext = ac("#076678", "#83a598")
		colorMeta = ac("#665c54", "#bdae93")
		colorOverdue = ac("#9d0006", "#fb4934")
		colorStatusOK = ac("#79740e", "#b8bb26")
		colorStatusErr = ac("#9d0006", "#fb4934")
		colorPrompt = ac("#b57614", "#fabd2f")
	case "solarized":
		currentTheme = "solarized"
		resetPaletteToDefaults()
		colorBorder = ac("#93a1a1", "#586e75")
		colorBorderFocus = ac("#268bd2", "#268bd2")
		colorTitle = ac("#268bd2", "#268bd2")
		colorMuted = ac("#93a1a1", "#586e75")
		colorSelected = ac("#073642", "#eee8d5")
		colorPriority = ac("#b58900", "#b58900")
		colorProject = ac("#859900", "#859900")
		colorContext = ac("#2aa198", "#2aa198")
		colorMeta = ac("#93a1a1", "#839496")
		colorOverdue = ac("#dc322f", "#dc322f")
		colorStatusOK = ac("#859900", "#859900")
		colorStatusErr = ac("#dc322f", "#dc322f")
		colorPrompt = ac("#cb4b16", "#cb4b16")
	case "mono":
		currentTheme = "mono"
		colorBorder = lipgloss.NoColor{}
		colorBorderFocus = lipgloss.NoColor{}
		colorTitle = lipgloss.NoColor{}
		colorMuted = lipgloss.NoColor{}
		colorSelected = lipgloss.NoColor{}
		colorPriority = lipgloss.NoColor{}
		colorProject = lipgloss.NoColor{}
		colorContext = lipgloss.NoColor{}
		colorMeta = lipgloss.NoColor{}
		colorOverdue = lipgloss.NoColor{}
		colorStatusOK = lipgloss.NoColor{}
		colorStatusErr = lipgloss.NoColor{}
		colorPrompt = lipgloss.NoColor{}
	default:
		return false
	}
	return true
}

// applyColorProfilePreference picks the color profile before the
// program starts. NO_COLOR always wins; COLORTERM upgrades terminals
// whose probing under-reports truecolor support.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	}
	lipgloss.SetColorProfile(profile)
}

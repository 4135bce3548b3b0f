// Package theme holds the color palettes used by the conflict browser.
package theme

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors used by the UI. Current and Incoming color the two
// sides of a conflict region; Marker colors the marker lines themselves.
type Theme struct {
	Name      string
	Light     bool
	Accent    lipgloss.Color
	AccentFg  lipgloss.Color // Text drawn on Accent
	Border    lipgloss.Color
	BorderDim lipgloss.Color
	MutedFg   lipgloss.Color
	TextFg    lipgloss.Color
	Current   lipgloss.Color
	Incoming  lipgloss.Color
	Marker    lipgloss.Color
	WarnFg    lipgloss.Color
	ErrorFg   lipgloss.Color
}

// Theme names.
const (
	DraculaName         = "dracula"
	DraculaLightName    = "dracula-light"
	SolarizedDarkName   = "solarized-dark"
	SolarizedLightName  = "solarized-light"
	GruvboxDarkName     = "gruvbox-dark"
	GruvboxLightName    = "gruvbox-light"
	NordName            = "nord"
	CatppuccinMochaName = "catppuccin-mocha"
	CatppuccinLatteName = "catppuccin-latte"
)

// palette lists colors in Theme field order, Accent through ErrorFg.
type palette [11]string

type entry struct {
	light  bool
	colors palette
}

var registry = map[string]entry{
	DraculaName:         {false, palette{"#BD93F9", "#282A36", "#6272A4", "#44475A", "#6272A4", "#F8F8F2", "#50FA7B", "#8BE9FD", "#FF79C6", "#FFB86C", "#FF5555"}},
	DraculaLightName:    {true, palette{"#7C3AED", "#FFFFFF", "#D0D7DE", "#E8E8E8", "#6E7781", "#24292F", "#059669", "#0891B2", "#DB2777", "#D97706", "#DC2626"}},
	SolarizedDarkName:   {false, palette{"#268BD2", "#FDF6E3", "#586E75", "#073642", "#586E75", "#EEE8D5", "#859900", "#2AA198", "#D33682", "#B58900", "#DC322F"}},
	SolarizedLightName:  {true, palette{"#268BD2", "#FDF6E3", "#93A1A1", "#E4DDC7", "#93A1A1", "#073642", "#859900", "#2AA198", "#D33682", "#B58900", "#DC322F"}},
	GruvboxDarkName:     {false, palette{"#FABD2F", "#282828", "#504945", "#3C3836", "#928374", "#EBDBB2", "#B8BB26", "#83A598", "#D3869B", "#FABD2F", "#FB4934"}},
	GruvboxLightName:    {true, palette{"#D79921", "#FBF1C7", "#D5C4A1", "#C0B58A", "#7C6F64", "#3C3836", "#79740E", "#427B58", "#B16286", "#D79921", "#9D0006"}},
	NordName:            {false, palette{"#88C0D0", "#2E3440", "#4C566A", "#434C5E", "#81A1C1", "#E5E9F0", "#A3BE8C", "#88C0D0", "#B48EAD", "#EBCB8B", "#BF616A"}},
	CatppuccinMochaName: {false, palette{"#B4BEFE", "#1E1E2E", "#45475A", "#313244", "#6C7086", "#CDD6F4", "#A6E3A1", "#89DCEB", "#F5C2E7", "#F9E2AF", "#F38BA8"}},
	CatppuccinLatteName: {true, palette{"#7287FD", "#EFF1F5", "#BCC0CC", "#CCD0DA", "#8C8FA1", "#4C4F69", "#40A02B", "#04A5E5", "#EA76CB", "#DF8E1D", "#D20F39"}},
}

// GetTheme returns a theme by name, or the default dark theme if not found.
func GetTheme(name string) *Theme {
	e, ok := registry[name]
	if !ok {
		name = DefaultDark()
		e = registry[name]
	}
	c := e.colors
	return &Theme{
		Name:      name,
		Light:     e.light,
		Accent:    lipgloss.Color(c[0]),
		AccentFg:  lipgloss.Color(c[1]),
		Border:    lipgloss.Color(c[2]),
		BorderDim: lipgloss.Color(c[3]),
		MutedFg:   lipgloss.Color(c[4]),
		TextFg:    lipgloss.Color(c[5]),
		Current:   lipgloss.Color(c[6]),
		Incoming:  lipgloss.Color(c[7]),
		Marker:    lipgloss.Color(c[8]),
		WarnFg:    lipgloss.Color(c[9]),
		ErrorFg:   lipgloss.Color(c[10]),
	}
}

// IsLight returns true if the theme is a light theme.
func IsLight(name string) bool {
	return registry[name].light
}

// DefaultDark returns the default dark theme name.
func DefaultDark() string {
	return DraculaName
}

// DefaultLight returns the default light theme name.
func DefaultLight() string {
	return DraculaLightName
}

// ForBackground picks the default theme matching the terminal background.
func ForBackground() string {
	if lipgloss.HasDarkBackground() {
		return DefaultDark()
	}
	return DefaultLight()
}

// AvailableThemes returns the sorted list of theme names.
func AvailableThemes() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

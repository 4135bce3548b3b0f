// Package completion describes lazyconflict flags for shell completion.
package completion

import (
	"strings"

	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/theme"
)

// FlagInfo contains metadata about a command-line flag for completion generation.
type FlagInfo struct {
	Name        string   // Flag name without dashes
	Description string   // Human-readable description
	HasValue    bool     // true for string flags, false for bool flags
	ValueHint   string   // Hint for value type (e.g., "DIR", "PATH", "NAME")
	Values      []string // Enumerated values for completion (e.g., theme names)
}

// Sides lists the accepted --side values.
func Sides() []string {
	sides := []models.Side{models.SideCurrent, models.SideIncoming, models.SideBase, models.SideBoth}
	out := make([]string, 0, len(sides))
	for _, s := range sides {
		out = append(out, s.String())
	}
	return out
}

// ConfigKeys lists the keys accepted by --config, with their lc. prefix.
func ConfigKeys() []string {
	return []string{
		"lc.auto_refresh=",
		"lc.debug_log=",
		"lc.default_side=",
		"lc.default_target=",
		"lc.diagnostics_capacity=",
		"lc.editor=",
		"lc.preview_commit_limit=",
		"lc.scan_concurrency=",
		"lc.show_icons=",
		"lc.stage_on_write=",
		"lc.theme=",
	}
}

// GetFlags returns metadata for the lazyconflict flags that take a value.
func GetFlags() []FlagInfo {
	return []FlagInfo{
		{Name: "repo", Description: "Repository to work on", HasValue: true, ValueHint: "DIR"},
		{Name: "debug-log", Description: "Path to debug log file", HasValue: true, ValueHint: "PATH"},
		{Name: "config-file", Description: "Path to configuration file", HasValue: true, ValueHint: "FILE"},
		{
			Name:        "theme",
			Description: "Override UI theme",
			HasValue:    true,
			ValueHint:   "NAME",
			Values:      theme.AvailableThemes(),
		},
		{
			Name:        "config",
			Description: "Override a config value",
			HasValue:    true,
			ValueHint:   "KEY=VALUE",
			Values:      ConfigKeys(),
		},
		{
			Name:        "side",
			Description: "Side to keep",
			HasValue:    true,
			ValueHint:   "SIDE",
			Values:      Sides(),
		},
		{Name: "region", Description: "0-based region ordinal", HasValue: true, ValueHint: "N"},
		{Name: "source", Description: "Branch to merge", HasValue: true, ValueHint: "BRANCH"},
		{Name: "target", Description: "Branch merged into", HasValue: true, ValueHint: "BRANCH"},
	}
}

// aliases maps short flag names to their long form.
var aliases = map[string]string{"t": "theme", "C": "config", "s": "side", "r": "region"}

// ValuesFor returns the enumerated values of the flag written as arg
// (e.g. "--theme" or "-t"). ok is false when arg is not a flag taking a value.
func ValuesFor(arg string) (values []string, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return nil, false
	}
	name := strings.TrimLeft(arg, "-")
	if long, found := aliases[name]; found {
		name = long
	}
	for _, f := range GetFlags() {
		if f.Name == name {
			return f.Values, f.HasValue
		}
	}
	return nil, false
}

// Package config loads application and repository configuration from YAML,
// git config and command line overrides.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/theme"
	"gopkg.in/yaml.v3"
)

// AppConfig defines the lazyconflict configuration options.
type AppConfig struct {
	DebugLog            string
	DiagnosticsCapacity int         // Size of the in-memory diagnostics ring
	PreviewCommitLimit  int         // Max commits diffed for a merge preview
	ScanConcurrency     int         // Files read in parallel during a scan
	Theme               string      // Theme name: see AvailableThemes in internal/theme
	ShowIcons           bool        // Render Nerd Font icons in the file list (default: true)
	AutoRefresh         bool        // Rescan when the git directory changes (default: true)
	Editor              string      // Editor used to open a file for manual resolution
	StageOnWrite        bool        // Run git add after writing a resolved file (default: true)
	DefaultSide         models.Side // Side used by `resolve` when --side is omitted
	DefaultTarget       string      // Target branch for previews; empty means the current branch
}

// RepoConfig holds repository-scoped overrides read from .lazyconflict.yaml.
type RepoConfig struct {
	Path   string
	Values map[string]any
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		DiagnosticsCapacity: 200,
		PreviewCommitLimit:  50,
		ScanConcurrency:     4,
		ShowIcons:           true,
		AutoRefresh:         true,
		StageOnWrite:        true,
		DefaultSide:         models.SideCurrent,
	}
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(v))
		switch text {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return defaultVal
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	}
	return defaultVal
}

// coercePositive is coerceInt restricted to values above zero.
func coercePositive(value any, defaultVal int) int {
	if n := coerceInt(value, defaultVal); n > 0 {
		return n
	}
	return defaultVal
}

func coerceString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []any:
		// Multi-valued git config keys: the last one wins.
		if len(v) == 0 {
			return "", false
		}
		text = fmt.Sprintf("%v", v[len(v)-1])
	default:
		text = fmt.Sprintf("%v", v)
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// applyConfig layers data on top of cfg. Unknown keys and invalid values are
// ignored so a bad entry never prevents the tool from starting.
func applyConfig(cfg *AppConfig, data map[string]any) {
	if debugLog, ok := coerceString(data["debug_log"]); ok {
		cfg.DebugLog = debugLog
	}
	if editor, ok := coerceString(data["editor"]); ok {
		cfg.Editor = editor
	}
	if target, ok := coerceString(data["default_target"]); ok {
		cfg.DefaultTarget = target
	}
	if name, ok := coerceString(data["theme"]); ok {
		if normalized := NormalizeThemeName(name); normalized != "" {
			cfg.Theme = normalized
		}
	}
	if sideName, ok := coerceString(data["default_side"]); ok {
		if side, err := models.ParseSide(sideName); err == nil {
			cfg.DefaultSide = side
		}
	}

	cfg.DiagnosticsCapacity = coercePositive(data["diagnostics_capacity"], cfg.DiagnosticsCapacity)
	cfg.PreviewCommitLimit = coercePositive(data["preview_commit_limit"], cfg.PreviewCommitLimit)
	cfg.ScanConcurrency = coercePositive(data["scan_concurrency"], cfg.ScanConcurrency)

	cfg.ShowIcons = coerceBool(data["show_icons"], cfg.ShowIcons)
	cfg.AutoRefresh = coerceBool(data["auto_refresh"], cfg.AutoRefresh)
	cfg.StageOnWrite = coerceBool(data["stage_on_write"], cfg.StageOnWrite)
}

func parseConfig(data map[string]any) *AppConfig {
	cfg := DefaultConfig()
	applyConfig(cfg, data)
	return cfg
}

// repoScopedKeys lists the keys a repository file is allowed to override.
var repoScopedKeys = []string{"preview_commit_limit", "default_side", "default_target", "stage_on_write"}

// LoadRepoConfig loads repository-scoped overrides from .lazyconflict.yaml in repoPath.
func LoadRepoConfig(repoPath string) (*RepoConfig, string, error) {
	if repoPath == "" {
		return nil, "", fmt.Errorf("empty repo path")
	}
	cleanRepoPath := filepath.Clean(repoPath)
	cfgPath := filepath.Join(cleanRepoPath, models.RepoConfigFilename)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return nil, cfgPath, nil
	}

	dataBytes, err := fs.ReadFile(os.DirFS(cleanRepoPath), models.RepoConfigFilename)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("failed to read %s: %w", models.RepoConfigFilename, err)
	}

	var yamlData map[string]any
	if err := yaml.Unmarshal(dataBytes, &yamlData); err != nil {
		return nil, cfgPath, fmt.Errorf("failed to parse %s: %w", models.RepoConfigFilename, err)
	}

	values := make(map[string]any, len(repoScopedKeys))
	for _, key := range repoScopedKeys {
		if v, ok := yamlData[key]; ok {
			values[key] = v
		}
	}
	return &RepoConfig{Path: cfgPath, Values: values}, cfgPath, nil
}

// ApplyRepoConfig layers repository overrides on top of cfg.
func (cfg *AppConfig) ApplyRepoConfig(repo *RepoConfig) {
	if repo == nil {
		return
	}
	applyConfig(cfg, repo.Values)
}

// ApplyCLIOverrides layers --config=lc.key=value overrides on top of cfg.
func (cfg *AppConfig) ApplyCLIOverrides(overrides []string) error {
	data, err := parseCLIConfigOverrides(overrides)
	if err != nil {
		return err
	}
	applyConfig(cfg, data)
	return nil
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// LoadConfig reads the application configuration. Values are layered as
// defaults, then the YAML file, then global and local git config (lc.* keys).
func LoadConfig(configPath string) (*AppConfig, error) {
	configBase := filepath.Join(getConfigDir(), "lazyconflict")
	configBase = filepath.Clean(configBase)

	var paths []string

	if configPath != "" {
		expanded, err := ExpandPath(configPath)
		if err != nil {
			return DefaultConfig(), err
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return DefaultConfig(), err
		}
		if !isPathWithin(configBase, absPath) {
			return DefaultConfig(), fmt.Errorf("config path must reside inside %s", configBase)
		}
		paths = []string{absPath}
	} else {
		paths = []string{
			filepath.Join(configBase, "config.yaml"),
			filepath.Join(configBase, "config.yml"),
		}
	}

	cfg := DefaultConfig()

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		// #nosec G304 -- path is constrained to the config directory after validation
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
		}

		cfg = parseConfig(yamlData)
		break
	}

	if global, err := loadGitConfig(true, ""); err == nil {
		applyConfig(cfg, global)
	}
	if repoPath := determineRepoPath(); repoPath != "" {
		if local, err := loadGitConfig(false, repoPath); err == nil {
			applyConfig(cfg, local)
		}
	}

	if cfg.Theme == "" {
		cfg.Theme = theme.DefaultDark()
	}

	return cfg, nil
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}

func isPathWithin(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}

// NormalizeThemeName returns the canonical theme name, or "" when unknown.
func NormalizeThemeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	for _, available := range theme.AvailableThemes() {
		if available == name {
			return available
		}
	}
	return ""
}

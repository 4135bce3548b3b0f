package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// gitConfigPrefix namespaces lazyconflict keys in git config and --config overrides.
const gitConfigPrefix = "lc."

const gitConfigTimeout = 5 * time.Second

// gitConfigMock allows tests to mock git config output.
var gitConfigMock func(args []string, repoPath string) (string, error)

func runGitConfig(args []string, repoPath string) (string, error) {
	if gitConfigMock != nil {
		return gitConfigMock(args, repoPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitConfigTimeout)
	defer cancel()

	// #nosec G204 -- args are built from constants in this package
	cmd := exec.CommandContext(ctx, "git", args...)
	if repoPath != "" {
		cmd.Dir = repoPath
	}

	output, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no key matched.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return string(output), nil
}

// parseGitConfigOutput turns "lc.key value" lines into a key to values map.
func parseGitConfigOutput(output string) map[string][]string {
	configMap := make(map[string][]string)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok || !strings.HasPrefix(key, gitConfigPrefix) {
			continue
		}
		key = normalizeKey(strings.TrimPrefix(key, gitConfigPrefix))
		configMap[key] = append(configMap[key], value)
	}
	return configMap
}

// normalizeKey maps git-style keys (stage-on-write, stageOnWrite lowercased by
// git) onto the snake_case names used in YAML.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

func toConfigMap(values map[string][]string) map[string]any {
	result := make(map[string]any, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			result[key] = vals[0]
		default:
			anySlice := make([]any, len(vals))
			for i, v := range vals {
				anySlice[i] = v
			}
			result[key] = anySlice
		}
	}
	return result
}

// loadGitConfig reads lc.* keys from the global or local git config.
func loadGitConfig(globalOnly bool, repoPath string) (map[string]any, error) {
	scope := "--local"
	if globalOnly {
		scope = "--global"
	}
	output, err := runGitConfig([]string{"config", scope, "--get-regexp", `^lc\.`}, repoPath)
	if err != nil {
		return nil, err
	}
	return toConfigMap(parseGitConfigOutput(output)), nil
}

func isInGitRepo(path string) bool {
	if path == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), gitConfigTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = path
	return cmd.Run() == nil
}

// determineRepoPath returns the working directory when it is inside a repository.
func determineRepoPath() string {
	if wd, err := os.Getwd(); err == nil && isInGitRepo(wd) {
		return wd
	}
	return ""
}

// parseCLIConfigOverrides parses --config=lc.key=value entries.
func parseCLIConfigOverrides(overrides []string) (map[string]any, error) {
	values := make(map[string][]string)
	for _, override := range overrides {
		fullKey, value, ok := strings.Cut(override, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config override: %q, expected format: lc.key=value", override)
		}
		if !strings.HasPrefix(fullKey, gitConfigPrefix) {
			return nil, fmt.Errorf("config override key must start with %q: %q", gitConfigPrefix, fullKey)
		}
		key := normalizeKey(strings.TrimPrefix(fullKey, gitConfigPrefix))
		if key == "" {
			return nil, fmt.Errorf("empty config key in override: %q", override)
		}
		values[key] = append(values[key], value)
	}
	return toConfigMap(values), nil
}

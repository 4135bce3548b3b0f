package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitConfigOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected map[string][]string
	}{
		{
			name:   "single values",
			output: "lc.theme dracula\nlc.scan_concurrency 8\n",
			expected: map[string][]string{
				"theme":            {"dracula"},
				"scan_concurrency": {"8"},
			},
		},
		{
			name:   "values with spaces",
			output: "lc.editor code --wait\n",
			expected: map[string][]string{
				"editor": {"code --wait"},
			},
		},
		{
			name:   "multi-value keys",
			output: "lc.editor vim\nlc.editor hx\n",
			expected: map[string][]string{
				"editor": {"vim", "hx"},
			},
		},
		{
			name:   "dashed keys become snake case",
			output: "lc.stage-on-write false\n",
			expected: map[string][]string{
				"stage_on_write": {"false"},
			},
		},
		{
			name:     "foreign prefix and blank lines are skipped",
			output:   "lw.theme nord\n\n   \nnovalue\n",
			expected: map[string][]string{},
		},
		{
			name:     "empty output",
			output:   "",
			expected: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseGitConfigOutput(tt.output))
		})
	}
}

func TestToConfigMap(t *testing.T) {
	got := toConfigMap(map[string][]string{
		"theme":  {"nord"},
		"editor": {"vim", "hx"},
		"empty":  {},
	})
	assert.Equal(t, map[string]any{
		"theme":  "nord",
		"editor": []any{"vim", "hx"},
	}, got)
}

func TestLoadGitConfig(t *testing.T) {
	t.Cleanup(func() { gitConfigMock = nil })

	t.Run("global scope", func(t *testing.T) {
		gitConfigMock = func(args []string, repoPath string) (string, error) {
			assert.Contains(t, args, "--global")
			assert.Empty(t, repoPath)
			return "lc.auto_refresh false\n", nil
		}
		got, err := loadGitConfig(true, "")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"auto_refresh": "false"}, got)
	})

	t.Run("local scope", func(t *testing.T) {
		gitConfigMock = func(args []string, repoPath string) (string, error) {
			assert.Contains(t, args, "--local")
			assert.Equal(t, "/repo", repoPath)
			return "", nil
		}
		got, err := loadGitConfig(false, "/repo")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("error", func(t *testing.T) {
		gitConfigMock = func([]string, string) (string, error) {
			return "", errors.New("git command failed")
		}
		got, err := loadGitConfig(true, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "git command failed")
		assert.Nil(t, got)
	})
}

func TestParseCLIConfigOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides []string
		expected  map[string]any
		errSubstr string
	}{
		{
			name:      "single override",
			overrides: []string{"lc.theme=nord"},
			expected:  map[string]any{"theme": "nord"},
		},
		{
			name:      "value containing equals",
			overrides: []string{"lc.editor=env A=1 vim"},
			expected:  map[string]any{"editor": "env A=1 vim"},
		},
		{
			name:      "repeated key",
			overrides: []string{"lc.editor=vim", "lc.editor=hx", "lc.editor=nano"},
			expected:  map[string]any{"editor": []any{"vim", "hx", "nano"}},
		},
		{
			name:      "empty list",
			overrides: nil,
			expected:  map[string]any{},
		},
		{
			name:      "missing equals",
			overrides: []string{"lc.theme nord"},
			errSubstr: "expected format",
		},
		{
			name:      "wrong prefix",
			overrides: []string{"lw.theme=nord"},
			errSubstr: "must start with",
		},
		{
			name:      "empty key",
			overrides: []string{"lc.=x"},
			errSubstr: "empty config key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCLIConfigOverrides(tt.overrides)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsInGitRepo(t *testing.T) {
	assert.False(t, isInGitRepo(""))
	assert.False(t, isInGitRepo("/non/existent/path"))
}

func TestDetermineRepoPathOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	t.Chdir(dir)

	assert.Empty(t, determineRepoPath())
}

func TestRunGitConfigMock(t *testing.T) {
	t.Cleanup(func() { gitConfigMock = nil })
	gitConfigMock = func([]string, string) (string, error) {
		return "lc.theme nord\n", nil
	}

	output, err := runGitConfig([]string{"config"}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "lc."))
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		input    string
		expected Side
		wantErr  bool
	}{
		{input: "current", expected: SideCurrent},
		{input: "ours", expected: SideCurrent},
		{input: " Incoming ", expected: SideIncoming},
		{input: "theirs", expected: SideIncoming},
		{input: "base", expected: SideBase},
		{input: "both", expected: SideBoth},
		{input: "mine", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			side, err := ParseSide(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, side)
		})
	}
}

func TestSideStringRoundTrip(t *testing.T) {
	for _, side := range []Side{SideCurrent, SideIncoming, SideBase, SideBoth} {
		parsed, err := ParseSide(side.String())
		require.NoError(t, err)
		assert.Equal(t, side, parsed)
	}
	assert.Equal(t, "side(42)", Side(42).String())
}

func TestRiskJSON(t *testing.T) {
	data, err := json.Marshal(MergePreview{ConflictRisk: RiskMedium})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ConflictRisk":"medium"`)

	risk, err := ParseRisk("HIGH")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, risk)

	_, err = ParseRisk("extreme")
	assert.Error(t, err)
}

func TestCommitHelpers(t *testing.T) {
	root := Commit{Hash: "0123456789abcdef"}
	assert.Empty(t, root.FirstParent())
	assert.Equal(t, "0123456", root.ShortHash())

	merge := Commit{Hash: "abc", Parents: []string{"p1", "p2"}}
	assert.Equal(t, "p1", merge.FirstParent())
	assert.Equal(t, "abc", merge.ShortHash())
}

func TestIsUnmergedStatus(t *testing.T) {
	assert.True(t, IsUnmergedStatus("UU"))
	assert.True(t, IsUnmergedStatus("AA"))
	assert.True(t, IsUnmergedStatus("DU"))
	assert.False(t, IsUnmergedStatus(".M"))
	assert.False(t, IsUnmergedStatus("M."))
	assert.False(t, IsUnmergedStatus("??"))
}

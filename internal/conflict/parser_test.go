package conflict

import (
	"errors"
	"strings"
	"testing"

	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleConflict = "line1\n<<<<<<< HEAD\nfoo\n=======\nbar\n>>>>>>> feature\nline2"

const twoConflicts = `package main
<<<<<<< HEAD
a := 1
=======
a := 2
>>>>>>> topic
func main() {}
<<<<<<< HEAD
b := "ours"
b2 := "ours"
=======
b := "theirs"
>>>>>>> topic
// end`

func TestParseSingleRegion(t *testing.T) {
	regions, err := ParseAllConflictRegions(singleConflict)
	require.NoError(t, err)

	want := []models.ConflictRegion{{
		StartLine:       1,
		SeparatorLine:   3,
		EndLine:         5,
		CurrentLabel:    "HEAD",
		IncomingLabel:   "feature",
		CurrentContent:  "foo",
		IncomingContent: "bar",
	}}
	if diff := cmp.Diff(want, regions); diff != "" {
		t.Fatalf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMultipleRegions(t *testing.T) {
	regions, err := ParseAllConflictRegions(twoConflicts)
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "a := 1", regions[0].CurrentContent)
	assert.Equal(t, "a := 2", regions[0].IncomingContent)
	assert.Equal(t, "b := \"ours\"\nb2 := \"ours\"", regions[1].CurrentContent)
	assert.Equal(t, "b := \"theirs\"", regions[1].IncomingContent)

	for i, r := range regions {
		assert.Less(t, r.StartLine, r.SeparatorLine, "region %d", i)
		assert.Less(t, r.SeparatorLine, r.EndLine, "region %d", i)
		if i > 0 {
			assert.Greater(t, r.StartLine, regions[i-1].EndLine)
		}
	}
}

func TestParseNoConflicts(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"a\nb\nc\n",
		"# Title\n=======\nbody",
		">>>>>>> stray end\n",
	}
	for _, input := range inputs {
		regions, err := ParseAllConflictRegions(input)
		require.NoError(t, err)
		assert.Empty(t, regions, "input %q", input)
		assert.False(t, HasConflictMarkers(input))
	}
}

func TestParseEmptyLabelsAndSides(t *testing.T) {
	text := "<<<<<<<\n=======\n>>>>>>>"
	regions, err := ParseAllConflictRegions(text)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Empty(t, regions[0].CurrentLabel)
	assert.Empty(t, regions[0].IncomingLabel)
	assert.Empty(t, regions[0].CurrentContent)
	assert.Empty(t, regions[0].IncomingContent)
}

func TestParseLabelIsTrimmed(t *testing.T) {
	text := "<<<<<<<    HEAD  \nx\n=======\ny\n>>>>>>>   abc123 (add thing)\t"
	regions, err := ParseAllConflictRegions(text)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "HEAD", regions[0].CurrentLabel)
	assert.Equal(t, "abc123 (add thing)", regions[0].IncomingLabel)
}

func TestParseStrayStartRestartsRegion(t *testing.T) {
	text := strings.Join([]string{
		"<<<<<<< first",
		"lost",
		"<<<<<<< second",
		"kept",
		"=======",
		"other",
		">>>>>>> end",
	}, "\n")

	regions, err := ParseAllConflictRegions(text)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, 2, regions[0].StartLine)
	assert.Equal(t, "second", regions[0].CurrentLabel)
	assert.Equal(t, "kept", regions[0].CurrentContent)
	assert.Equal(t, "other", regions[0].IncomingContent)
}

func TestParseStrayStartKeepsAbandonedLinesWithNextBlock(t *testing.T) {
	text := "before\n<<<<<<< first\nlost\n<<<<<<< second\nkept\n=======\nother\n>>>>>>> end\nafter"

	segments, err := scan(text)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, []string{"before"}, segments[0].lines)
	require.NotNil(t, segments[1].block)
	assert.Equal(t, []string{
		"<<<<<<< first", "lost", "<<<<<<< second", "kept", "=======", "other", ">>>>>>> end",
	}, segments[1].block.raw)
	assert.Equal(t, []string{"kept"}, segments[1].block.current)
	assert.Equal(t, []string{"after"}, segments[2].lines)
}

func TestParseMissingSeparatorIsMalformed(t *testing.T) {
	text := singleConflict + "\n<<<<<<< HEAD\nonly one side\n>>>>>>> feature\ntail"

	regions, err := ParseAllConflictRegions(text)
	require.ErrorIs(t, err, ErrMalformedConflict)
	assert.Contains(t, err.Error(), "missing ======= separator")
	require.Len(t, regions, 1)
	assert.Equal(t, "foo", regions[0].CurrentContent)

	_, err = ResolveConflictAccept(text, models.SideCurrent)
	assert.ErrorIs(t, err, ErrMalformedConflict)
}

func TestParseUnterminatedRegion(t *testing.T) {
	text := singleConflict + "\n<<<<<<< HEAD\ndangling\n=======\nrest"

	regions, err := ParseAllConflictRegions(text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedConflict))

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 7, malformed.Line)
	assert.Contains(t, err.Error(), "line 8")

	require.Len(t, regions, 1, "completed regions are still returned")
	assert.Equal(t, "foo", regions[0].CurrentContent)
}

func TestParseEndWithoutSeparator(t *testing.T) {
	text := "<<<<<<< HEAD\nonly\n>>>>>>> feature"
	regions, err := ParseAllConflictRegions(text)
	assert.ErrorIs(t, err, ErrMalformedConflict)
	assert.Empty(t, regions)
}

func TestParseDiff3BaseMarkerIsCurrentContent(t *testing.T) {
	text := "<<<<<<< HEAD\nours\n||||||| base\norig\n=======\ntheirs\n>>>>>>> feature"
	regions, err := ParseAllConflictRegions(text)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "ours\n||||||| base\norig", regions[0].CurrentContent)
}

func TestParseKeepsCarriageReturns(t *testing.T) {
	text := "<<<<<<< HEAD\r\nfoo\r\n=======\r\nbar\r\n>>>>>>> feature\r\n"
	regions, err := ParseAllConflictRegions(text)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "HEAD", regions[0].CurrentLabel)
	assert.Equal(t, "foo\r", regions[0].CurrentContent)
}

func TestCountRegions(t *testing.T) {
	assert.Equal(t, 0, CountRegions("nothing"))
	assert.Equal(t, 1, CountRegions(singleConflict))
	assert.Equal(t, 2, CountRegions(twoConflicts))
	assert.True(t, HasConflictMarkers(twoConflicts))
}

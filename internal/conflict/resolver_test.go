package conflict

import (
	"testing"

	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConflictAcceptScenario(t *testing.T) {
	current, err := ResolveConflictAccept(singleConflict, models.SideCurrent)
	require.NoError(t, err)
	assert.Equal(t, "line1\nfoo\nline2", current)

	incoming, err := ResolveConflictAccept(singleConflict, models.SideIncoming)
	require.NoError(t, err)
	assert.Equal(t, "line1\nbar\nline2", incoming)

	both, err := ResolveConflictAcceptBoth(singleConflict)
	require.NoError(t, err)
	assert.Equal(t, "line1\nfoo\nbar\nline2", both)
}

func TestResolveConflictAcceptBaseEmptiesRegions(t *testing.T) {
	out, err := ResolveConflictAccept(singleConflict, models.SideBase)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", out)

	out, err = ResolveConflictAccept(twoConflicts, models.SideBase)
	require.NoError(t, err)
	assert.Equal(t, "package main\nfunc main() {}\n// end", out)
}

func TestResolveConflictAcceptRejectsBoth(t *testing.T) {
	_, err := ResolveConflictAccept(singleConflict, models.SideBoth)
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = ResolveConflictAccept(singleConflict, models.Side(99))
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestResolveConflictFreeTextUnchanged(t *testing.T) {
	inputs := []string{
		"",
		"single line",
		"trailing newline\n",
		"# Heading\n=======\n\ntext\n",
		">>>>>>> not a conflict\n",
	}
	for _, input := range inputs {
		for _, side := range []models.Side{models.SideCurrent, models.SideIncoming, models.SideBase} {
			out, err := ResolveConflictAccept(input, side)
			require.NoError(t, err)
			assert.Equal(t, input, out, "side %s", side)
		}
		out, err := ResolveConflictAcceptBoth(input)
		require.NoError(t, err)
		assert.Equal(t, input, out)
	}
}

func TestResolveConflictAcceptIdempotent(t *testing.T) {
	for _, text := range []string{singleConflict, twoConflicts} {
		for _, side := range []models.Side{models.SideCurrent, models.SideIncoming, models.SideBase} {
			once, err := ResolveConflictAccept(text, side)
			require.NoError(t, err)
			twice, err := ResolveConflictAccept(once, side)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		}
	}
}

func TestResolveConflictAcceptPreservesTrailingNewline(t *testing.T) {
	out, err := ResolveConflictAccept(singleConflict+"\n", models.SideIncoming)
	require.NoError(t, err)
	assert.Equal(t, "line1\nbar\nline2\n", out)
}

func TestResolveConflictRegionOnlyTouchesTarget(t *testing.T) {
	out, err := ResolveConflictRegion(twoConflicts, 1, models.SideIncoming)
	require.NoError(t, err)

	want := `package main
<<<<<<< HEAD
a := 1
=======
a := 2
>>>>>>> topic
func main() {}
b := "theirs"
// end`
	assert.Equal(t, want, out)

	regions, err := ParseAllConflictRegions(out)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "a := 1", regions[0].CurrentContent)
	assert.Equal(t, "a := 2", regions[0].IncomingContent)
}

func TestResolveConflictRegionBoth(t *testing.T) {
	out, err := ResolveConflictRegion(singleConflict, 0, models.SideBoth)
	require.NoError(t, err)
	assert.Equal(t, "line1\nfoo\nbar\nline2", out)
}

func TestResolveConflictRegionErrors(t *testing.T) {
	_, err := ResolveConflictRegion(twoConflicts, 2, models.SideCurrent)
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, err = ResolveConflictRegion(twoConflicts, -1, models.SideCurrent)
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, err = ResolveConflictRegion("no conflicts", 0, models.SideCurrent)
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, err = ResolveConflictRegion(twoConflicts, 0, models.SideBase)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestResolveRegionByRegionMatchesAccept(t *testing.T) {
	three := twoConflicts + "\n<<<<<<< HEAD\nc1\n=======\nc2\nc3\n>>>>>>> topic\ntail\n"

	for _, side := range []models.Side{models.SideCurrent, models.SideIncoming} {
		t.Run(side.String(), func(t *testing.T) {
			want, err := ResolveConflictAccept(three, side)
			require.NoError(t, err)

			// Walking forward: after each step the next original region is first.
			text := three
			n := CountRegions(text)
			require.Equal(t, 3, n)
			for i := 0; i < n; i++ {
				text, err = ResolveConflictRegion(text, 0, side)
				require.NoError(t, err)
				assert.Equal(t, n-i-1, CountRegions(text))
			}
			assert.Equal(t, want, text)

			// Walking backwards keeps every lower ordinal stable.
			text = three
			for i := n - 1; i >= 0; i-- {
				text, err = ResolveConflictRegion(text, i, side)
				require.NoError(t, err)
			}
			assert.Equal(t, want, text)
		})
	}
}

func TestResolveStrayStartDiscardsAbandonedBlock(t *testing.T) {
	text := "<<<<<<< first\nlost\n<<<<<<< second\nkept\n=======\nother\n>>>>>>> end"

	tests := []struct {
		side models.Side
		want string
	}{
		{side: models.SideCurrent, want: "kept"},
		{side: models.SideIncoming, want: "other"},
		{side: models.SideBase, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			once, err := ResolveConflictAccept(text, tt.side)
			require.NoError(t, err)
			assert.Equal(t, tt.want, once)
			assert.False(t, HasConflictMarkers(once))

			twice, err := ResolveConflictAccept(once, tt.side)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}

	both, err := ResolveConflictAcceptBoth(text)
	require.NoError(t, err)
	assert.Equal(t, "kept\nother", both)
}

func TestResolveRegionKeepsAbandonedBlockOfOtherRegions(t *testing.T) {
	text := "<<<<<<< first\nlost\n<<<<<<< second\nkept\n=======\nother\n>>>>>>> end\nmid\n" +
		"<<<<<<< HEAD\na\n=======\nb\n>>>>>>> topic"

	out, err := ResolveConflictRegion(text, 1, models.SideIncoming)
	require.NoError(t, err)
	assert.Equal(t, "<<<<<<< first\nlost\n<<<<<<< second\nkept\n=======\nother\n>>>>>>> end\nmid\nb", out)
	assert.Equal(t, 1, CountRegions(out))

	out, err = ResolveConflictRegion(out, 0, models.SideIncoming)
	require.NoError(t, err)
	assert.Equal(t, "other\nmid\nb", out)
	assert.False(t, HasConflictMarkers(out))

	whole, err := ResolveConflictAccept(text, models.SideIncoming)
	require.NoError(t, err)
	assert.Equal(t, whole, out)
}

func TestResolveMalformed(t *testing.T) {
	text := "a\n<<<<<<< HEAD\nb\n=======\nc"

	_, err := ResolveConflictAccept(text, models.SideCurrent)
	assert.ErrorIs(t, err, ErrMalformedConflict)

	_, err = ResolveConflictAcceptBoth(text)
	assert.ErrorIs(t, err, ErrMalformedConflict)

	_, err = ResolveConflictRegion(text, 0, models.SideCurrent)
	assert.ErrorIs(t, err, ErrMalformedConflict)
}

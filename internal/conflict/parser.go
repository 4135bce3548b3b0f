// Package conflict parses and resolves two-way git conflict markers.
//
// Every function here is pure: it takes the current text and returns new text or
// the regions found in it. Regions are addressed by their ordinal position in the
// text being processed, which is recomputed on every call.
package conflict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chmouel/lazyconflict/internal/models"
)

const (
	startMarker     = "<<<<<<<"
	separatorMarker = "======="
	endMarker       = ">>>>>>>"
)

var (
	// ErrMalformedConflict is returned when a conflict block is never closed or is
	// closed without a separator.
	ErrMalformedConflict = errors.New("malformed conflict markers")
	// ErrInvalidSide is returned when a side is not valid for the requested resolution.
	ErrInvalidSide = errors.New("invalid side")
	// ErrRegionNotFound is returned when a region index does not address a region in the text.
	ErrRegionNotFound = errors.New("conflict region not found")
)

// MalformedError describes where a malformed conflict block starts.
type MalformedError struct {
	Line   int // 0-indexed line of the offending start marker
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s at line %d: %s", ErrMalformedConflict, e.Line+1, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedConflict
}

type section int

const (
	sectionCurrent section = iota
	sectionIncoming
)

// block is one complete conflict region together with its verbatim lines.
type block struct {
	raw      []string // every line of the block, markers and abandoned lines included
	current  []string
	incoming []string
	region   models.ConflictRegion
}

// segment is either a run of ordinary lines or a single conflict block.
type segment struct {
	lines []string
	block *block
}

// scan runs the marker state machine over text. Lines that do not belong to a
// region end up in plain segments. A block abandoned by a stray start marker
// becomes part of the raw lines of the block that replaced it. The first
// malformed block is reported through err; scanning still covers the whole text.
func scan(text string) (segments []segment, err error) {
	lines := strings.Split(text, "\n")

	var (
		plain      []string
		open       *block
		inConflict bool
		active     section
	)

	flushPlain := func() {
		if len(plain) > 0 {
			segments = append(segments, segment{lines: plain})
			plain = nil
		}
	}
	fail := func(line int, reason string) {
		if err == nil {
			err = &MalformedError{Line: line, Reason: reason}
		}
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, startMarker):
			var abandoned []string
			if inConflict {
				// A second start marker abandons the open block. Its lines stay
				// attached to the new block so that they are copied while the
				// region is left alone and discarded once it is resolved.
				abandoned = open.raw
			}
			inConflict = true
			active = sectionCurrent
			open = &block{
				raw: append(abandoned, line),
				region: models.ConflictRegion{
					StartLine:     i,
					SeparatorLine: -1,
					CurrentLabel:  strings.TrimSpace(line[len(startMarker):]),
				},
			}
		case inConflict && strings.HasPrefix(line, separatorMarker):
			active = sectionIncoming
			open.region.SeparatorLine = i
			open.raw = append(open.raw, line)
		case inConflict && strings.HasPrefix(line, endMarker):
			open.raw = append(open.raw, line)
			inConflict = false
			if open.region.SeparatorLine < 0 {
				fail(open.region.StartLine, "missing "+separatorMarker+" separator")
				plain = append(plain, open.raw...)
				open = nil
				continue
			}
			open.region.EndLine = i
			open.region.IncomingLabel = strings.TrimSpace(line[len(endMarker):])
			open.region.CurrentContent = strings.Join(open.current, "\n")
			open.region.IncomingContent = strings.Join(open.incoming, "\n")
			flushPlain()
			segments = append(segments, segment{block: open})
			open = nil
		case inConflict:
			open.raw = append(open.raw, line)
			if active == sectionCurrent {
				open.current = append(open.current, line)
			} else {
				open.incoming = append(open.incoming, line)
			}
		default:
			plain = append(plain, line)
		}
	}

	if inConflict {
		fail(open.region.StartLine, "missing "+endMarker+" end marker")
		plain = append(plain, open.raw...)
	}
	flushPlain()

	return segments, err
}

// ParseAllConflictRegions returns every complete conflict region in text, in order
// of appearance. When a block is left unterminated the regions found so far are
// returned together with a *MalformedError.
func ParseAllConflictRegions(text string) ([]models.ConflictRegion, error) {
	segments, err := scan(text)
	var regions []models.ConflictRegion
	for _, seg := range segments {
		if seg.block != nil {
			regions = append(regions, seg.block.region)
		}
	}
	return regions, err
}

// CountRegions returns the number of complete conflict regions in text.
func CountRegions(text string) int {
	regions, _ := ParseAllConflictRegions(text)
	return len(regions)
}

// HasConflictMarkers reports whether text contains a conflict start marker anywhere.
func HasConflictMarkers(text string) bool {
	return strings.Contains(text, startMarker)
}

package conflict

import (
	"fmt"
	"strings"

	"github.com/chmouel/lazyconflict/internal/models"
)

// keep returns the lines of b that survive when side is chosen.
func (b *block) keep(side models.Side) []string {
	switch side {
	case models.SideCurrent:
		return b.current
	case models.SideIncoming:
		return b.incoming
	case models.SideBoth:
		out := make([]string, 0, len(b.current)+len(b.incoming))
		out = append(out, b.current...)
		return append(out, b.incoming...)
	default:
		// Two-way markers carry no base section.
		return nil
	}
}

// render rebuilds text from segments, resolving the blocks for which choose
// returns true and copying every other line verbatim.
func render(segments []segment, choose func(ordinal int) (models.Side, bool)) string {
	var out []string
	ordinal := 0
	for _, seg := range segments {
		if seg.block == nil {
			out = append(out, seg.lines...)
			continue
		}
		if side, ok := choose(ordinal); ok {
			out = append(out, seg.block.keep(side)...)
		} else {
			out = append(out, seg.block.raw...)
		}
		ordinal++
	}
	return strings.Join(out, "\n")
}

// ResolveConflictAccept keeps one side of every conflict region. SideBase empties
// every region since two-way markers have no base section.
func ResolveConflictAccept(text string, side models.Side) (string, error) {
	switch side {
	case models.SideCurrent, models.SideIncoming, models.SideBase:
	default:
		return "", fmt.Errorf("%w: %s cannot be accepted for a whole file", ErrInvalidSide, side)
	}

	segments, err := scan(text)
	if err != nil {
		return "", err
	}
	return render(segments, func(int) (models.Side, bool) { return side, true }), nil
}

// ResolveConflictAcceptBoth removes the markers of every region, keeping current
// lines followed by incoming lines.
func ResolveConflictAcceptBoth(text string) (string, error) {
	segments, err := scan(text)
	if err != nil {
		return "", err
	}
	return render(segments, func(int) (models.Side, bool) { return models.SideBoth, true }), nil
}

// ResolveConflictRegion resolves only the region at ordinal index, leaving every
// other region untouched. Resolving a region removes it from the ordinal sequence,
// so the region that followed it becomes index.
func ResolveConflictRegion(text string, index int, side models.Side) (string, error) {
	switch side {
	case models.SideCurrent, models.SideIncoming, models.SideBoth:
	default:
		return "", fmt.Errorf("%w: %s cannot be chosen for a single region", ErrInvalidSide, side)
	}

	segments, err := scan(text)
	if err != nil {
		return "", err
	}

	count := 0
	for _, seg := range segments {
		if seg.block != nil {
			count++
		}
	}
	if index < 0 || index >= count {
		return "", fmt.Errorf("%w: index %d, %d regions present", ErrRegionNotFound, index, count)
	}

	return render(segments, func(ordinal int) (models.Side, bool) {
		return side, ordinal == index
	}), nil
}

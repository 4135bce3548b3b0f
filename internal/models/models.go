// Package models defines the data objects shared across lazyconflict packages.
package models

import (
	"fmt"
	"strings"
)

// ConflictRegion is one <<<<<<< / ======= / >>>>>>> block.
// Line numbers are 0-indexed and refer to the text as it was when parsed.
type ConflictRegion struct {
	StartLine       int
	SeparatorLine   int
	EndLine         int
	CurrentLabel    string // Text after <<<<<<<, usually a ref name
	IncomingLabel   string // Text after >>>>>>>
	CurrentContent  string
	IncomingContent string
}

// ConflictFile is a conflicted file found in the working tree.
type ConflictFile struct {
	Path       string // Repository relative
	RawContent string // Content including markers, never modified
	Regions    []ConflictRegion
}

// CommitFile represents a file changed in a commit.
type CommitFile struct {
	Filename   string
	ChangeType string // A=Added, M=Modified, D=Deleted, R=Renamed, C=Copied
	OldPath    string // For renames: the original path
}

// Commit identifies a commit considered for a merge preview.
type Commit struct {
	Hash    string
	Parents []string
	Subject string
}

// FirstParent returns the commit's first parent or "" for a root commit.
func (c Commit) FirstParent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// ShortHash returns the abbreviated commit hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// MergePreview is an advisory risk estimate for a prospective merge, rebase or cherry-pick.
type MergePreview struct {
	SourceBranch     string
	TargetBranch     string
	Commits          []Commit
	OverlappingFiles []string // Sorted, unique
	TotalFiles       int
	ConflictRisk     Risk
}

// Side selects which half of a conflict region to keep.
type Side int

// Side values. SideBase has no section of its own in two-way markers, so keeping
// it empties the block.
const (
	SideCurrent Side = iota
	SideIncoming
	SideBase
	SideBoth
)

func (s Side) String() string {
	switch s {
	case SideCurrent:
		return "current"
	case SideIncoming:
		return "incoming"
	case SideBase:
		return "base"
	case SideBoth:
		return "both"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ParseSide converts user input into a Side. "ours" and "theirs" are accepted as
// aliases for current and incoming.
func ParseSide(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "current", "ours":
		return SideCurrent, nil
	case "incoming", "theirs":
		return SideIncoming, nil
	case "base":
		return SideBase, nil
	case "both":
		return SideBoth, nil
	default:
		return SideCurrent, fmt.Errorf("unknown side %q", value)
	}
}

// Risk is the conflict risk classification of a merge preview.
type Risk int

// Risk levels.
const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// MarshalText renders the risk by name in JSON output.
func (r Risk) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRisk converts a risk name into a Risk.
func ParseRisk(value string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk %q", value)
	}
}

const (
	// RepoConfigFilename holds repository-scoped overrides.
	RepoConfigFilename = ".lazyconflict.yaml"
)

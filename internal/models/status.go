package models

// StatusFile represents a file entry from git status.
type StatusFile struct {
	Filename    string
	Status      string // XY status code (e.g., ".M", "M.", "UU")
	IsUntracked bool
	IsUnmerged  bool
}

// unmergedCodes lists the porcelain XY pairs git uses for unmerged entries.
var unmergedCodes = map[string]bool{
	"DD": true,
	"AU": true,
	"UD": true,
	"UA": true,
	"DU": true,
	"AA": true,
	"UU": true,
}

// IsUnmergedStatus reports whether a porcelain XY code denotes an unmerged path.
func IsUnmergedStatus(xy string) bool {
	return unmergedCodes[xy]
}

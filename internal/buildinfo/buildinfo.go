// Package buildinfo resolves the version metadata printed by `lazyconflict --version`.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// Placeholders left by a plain `go build` without -ldflags.
const (
	unsetVersion = "dev"
	unsetCommit  = "none"
	unsetDate    = "unknown"
	unsetBuilder = "unknown"
)

// Info describes one build of the binary.
type Info struct {
	Version   string
	Commit    string
	Date      string
	BuiltBy   string
	GoVersion string
	// Modified reports a build from a dirty work tree. Only known when the
	// metadata came from the embedded VCS stamp.
	Modified bool
}

var (
	mu      sync.RWMutex
	current = Info{Version: unsetVersion, Commit: unsetCommit, Date: unsetDate, BuiltBy: unsetBuilder}
)

// Resolve merges linker-injected values with the VCS stamp the Go toolchain
// embeds. Linker values win; the stamp only fills placeholders.
func Resolve(version, commit, date, builtBy string) Info {
	info := Info{Version: version, Commit: commit, Date: date, BuiltBy: builtBy}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = merge(info, bi)
	}
	return info
}

func merge(info Info, bi *debug.BuildInfo) Info {
	info.GoVersion = bi.GoVersion
	if info.Version == unsetVersion && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	stamped := info.Commit == unsetCommit
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if stamped {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == unsetDate {
				info.Date = s.Value
			}
		case "vcs.modified":
			if stamped {
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.BuiltBy == unsetBuilder && bi.GoVersion != "" {
		info.BuiltBy = bi.GoVersion
	}
	return info
}

// Set records info as the metadata of the running binary.
func Set(info Info) {
	mu.Lock()
	current = info
	mu.Unlock()
}

// Current returns the metadata recorded by Set.
func Current() Info {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lazyconflict version %s\n", i.Version)
	commit := i.Commit
	if i.Modified {
		commit += " (modified)"
	}
	fmt.Fprintf(&b, "commit: %s\n", commit)
	fmt.Fprintf(&b, "built at: %s\n", i.Date)
	fmt.Fprintf(&b, "built by: %s\n", i.BuiltBy)
	if i.GoVersion != "" && i.GoVersion != i.BuiltBy {
		fmt.Fprintf(&b, "go: %s\n", i.GoVersion)
	}
	return b.String()
}

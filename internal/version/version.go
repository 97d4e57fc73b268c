package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via ldflags. When unset (a plain `go install`),
// the module's embedded VCS info fills them in.
var (
	Commit    = ""
	BuildTime = ""
)

// String returns the version string (commit-hash based, no semver).
func String() string {
	commit, built := Commit, BuildTime
	if commit == "" || built == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					if commit == "" {
						commit = s.Value
					}
				case "vcs.time":
					if built == "" {
						built = s.Value
					}
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("spellbook dev (commit: %s, built: %s)", shortCommit(commit), built)
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

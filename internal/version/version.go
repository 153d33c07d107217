package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via ldflags. When unset, the VCS stamp the Go toolchain
// embeds is used instead.
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info identifies the running quoteflow build.
type Info struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified"`
}

// Get resolves the build identity, preferring ldflags over embedded build info.
func Get() Info {
	return resolve(Commit, BuildTime, debug.ReadBuildInfo)
}

func resolve(commit, built string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Commit: commit, BuildTime: built}
	if commit != "unknown" && built != "unknown" {
		return info
	}
	bi, ok := read()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String returns the version string (commit-hash based, no semver).
func String() string {
	return Get().String()
}

func (i Info) String() string {
	commit := shortCommit(i.Commit)
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("quoteflow dev (commit: %s, built: %s)", commit, i.BuildTime)
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

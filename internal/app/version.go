package app

import (
	"fmt"
	"runtime/debug"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetBuildInfo records the values stamped by -ldflags. Empty values keep
// the defaults.
func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

// BuildVersionString falls back to the VCS revision embedded by the Go
// toolchain when no commit was stamped.
func BuildVersionString() string {
	commit := buildCommit
	if commit == "none" {
		if rev := vcsRevision(debug.ReadBuildInfo); rev != "" {
			commit = rev
		}
	}
	return fmt.Sprintf("%s (%s) %s", buildVersion, commit, buildDate)
}

func vcsRevision(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok || info == nil {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// Package version reports the build version of rplisten.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/rplisten/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/rplisten/internal/version.Commit=abc123"
//
// Otherwise they come from the module and VCS build info, falling back to
// "dev" with a timestamp.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			populate(info)
		}
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// populate fills the unset variables from build info. A module installed
// with "go install ...@vX.Y.Z" carries its version in Main.Version; local
// builds only have VCS settings.
func populate(info *debug.BuildInfo) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Commit = rev
		}
	}

	if Version == "" {
		switch v := info.Main.Version; {
		case v != "" && v != "(devel)":
			Version = v
		case settings["vcs.time"] != "":
			if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
				Version = fmt.Sprintf("dev-%s", t.Format("20060102"))
			}
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s, %s/%s)", Version, Commit, runtime.GOOS, runtime.GOARCH)
}

// Package version exposes build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	devVersion = "dev"
	unknown    = "unknown"

	shortCommit = 12
)

// Build metadata, overridden at link time:
//
//	-X github.com/Sumatoshi-tech/rangekeeper/pkg/version.Version=v1.2.3
var (
	Version = devVersion
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset metadata from the module build info embedded
// by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
				if len(Commit) > shortCommit {
					Commit = Commit[:shortCommit]
				}
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for the version command.
func String() string {
	return fmt.Sprintf("rangekeeper %s (commit: %s, built: %s)", Version, Commit, Date)
}

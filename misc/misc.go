// Package misc keeps program identity in a single place.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "orca"

// Version is set by the linker during release builds, otherwise module
// information is used.
var Version string

func GetAppName() string {
	return appName
}

var readBuildInfo = sync.OnceValues(func() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
})

func GetVersion() string {
	if len(Version) > 0 {
		return Version
	}
	if bi, ok := readBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "unknown"
}

func GetGitHash() string {
	if bi, ok := readBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}

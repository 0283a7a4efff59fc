package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time, e.g.
// go build -ldflags "-X github.com/skyduel/beatsynth/version.Version=$(git describe --dirty)"
var Version string

// Revision returns the short VCS revision the binary was built from, with a
// -dirty suffix for modified trees, or "" when unknown.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}

// String returns the version, or the revision when no version was set, and
// the Go runtime it was built with.
func String() string {
	v := Version
	if v == "" {
		v = Revision()
	}
	if v == "" {
		v = "devel"
	}
	return fmt.Sprintf("beatsynth %s (%s)", v, runtime.Version())
}

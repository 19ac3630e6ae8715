// SPDX-License-Identifier: MIT
//
// Package build exposes the name, timestamp, commit and version embedded in
// the binary. Release builds set them with linker flags:
//
//	go build -ldflags "-X consolefft/internal/build.buildName=consolefft \
//	  -X consolefft/internal/build.buildVersion=0.1.0 ..."
//
// Development builds set none of them and fall back to the module and VCS
// information recorded by the Go toolchain.
package build

import (
	"errors"
	"fmt"
	"path"
	"runtime/debug"
)

// Info is the build information reported by --version.
type Info struct {
	Name    string // Application name
	Time    string // Build timestamp
	Commit  string // Git commit hash
	Version string // Semantic version
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

const unknown = "unknown"

// Package-level variables for build information.
// These are populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = Info{
		Name:    unknown,
		Time:    unknown,
		Commit:  unknown,
		Version: unknown,
	}
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize resolves the build information. When no ldflags were given it
// reads the toolchain's build info instead. Setting only some of the
// ldflags is a packaging mistake and returns an error naming the first
// missing one.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		fromRuntime()
		return nil
	}

	if buildName == "" {
		return errors.New("BuildName is required")
	}
	if buildTime == "" {
		return errors.New("BuildTime is required")
	}
	if buildCommit == "" {
		return errors.New("BuildCommit is required")
	}
	if buildVersion == "" {
		return errors.New("BuildVersion is required")
	}

	buildInfo = Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

func fromRuntime() {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if bi.Main.Path != "" {
		buildInfo.Name = path.Base(bi.Main.Path)
	}
	if bi.Main.Version != "" {
		buildInfo.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			buildInfo.Commit = s.Value
		case "vcs.time":
			buildInfo.Time = s.Value
		}
	}
}

// Get returns the resolved build information. Initialize must be called
// first; before that every field is "unknown".
func Get() Info {
	return buildInfo
}

// Package version provides the build version of the tools
package version

import (
	"fmt"
	"runtime"
)

// Build information, set by the linker:
//
//	-ldflags "-X github.com/effective-security/xcsr/internal/version.Version=v1.2.3 -X github.com/effective-security/xcsr/internal/version.Commit=abcdef"
var (
	Version = "v0.0.0"
	Commit  = "dev"
)

// Info describes the build
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Runtime string `json:"runtime" yaml:"runtime"`
}

// Current returns the build info
func Current() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Runtime: runtime.Version(),
	}
}

func (v Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", v.Version, v.Commit, v.Runtime)
}

// Package version describes the running build. The variables are set
// with -ldflags at build time.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	BuildDate    = "unknown"
	BuildVersion = "0.0.0"
	Commit       = "unknown"
)

type Info struct {
	Version string `json:"version"`
	Base    string `json:"base,omitempty"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func Get() Info {
	return Info{
		Version: BuildVersion,
		Base:    BaseVersion(),
		Commit:  Commit,
		Date:    BuildDate,
	}
}

// BaseVersion returns the major and minor part of BuildVersion, for
// example "v1.7". It is empty when BuildVersion is not a valid version.
func BaseVersion() string {
	v, err := semver.NewVersion(BuildVersion)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("v%d.%d", v.Major(), v.Minor())
}

func String() string {
	return fmt.Sprintf("lessonmark %s (%s) on %s", BuildVersion, Commit, BuildDate)
}

// Package version carries build information set with -ldflags.
package version

import "fmt"

var (
	Version   = "0.1.0"
	BuildTime = "development"
	GitCommit = "unknown"
)

func String() string {
	return fmt.Sprintf("v%s", Version)
}

// Full returns the version line printed by the command line.
func Full() string {
	return fmt.Sprintf("diamondperls %s (commit %s, built %s)", String(), GitCommit, BuildTime)
}

func Get() map[string]string {
	return map[string]string{
		"name":      "diamondperls",
		"version":   Version,
		"buildTime": BuildTime,
		"gitCommit": GitCommit,
	}
}

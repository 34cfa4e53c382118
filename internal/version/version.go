// Package version holds build metadata set through -ldflags, e.g.
//
//	go build -ldflags "-X github.com/longkey1/bddgen/internal/version.Version=v1.0.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns only the version number
func Short() string {
	return Version
}

// Info returns the full version description
func Info() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuilt: %s\nGo: %s", Version, CommitSHA, BuildTime, runtime.Version())
}

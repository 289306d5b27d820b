// Build information is injected through ldflags, e.g.
// `-ldflags "-X github.com/nobletooth/skipset/pkg/utils.Version=v1.2.0 -X ...utils.Commit=$(git rev-parse HEAD)"`.
// CAUTION: The variables below are looked up by name at link time; renaming them silently drops the build info.

package utils

import (
	"cmp"
	"log/slog"
	"strconv"
	"time"
)

// defaultVersion is reported by builds that didn't set -X utils.Version; it's a valid semantic version.
const defaultVersion = "v0.0.0-dev"

var (
	TestMode   string // "true" in builds where invariant violations should panic.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()
	Version = cmp.Or(Version, defaultVersion)
	Commit = cmp.Or(Commit, "unknown")
	BuildTime = cmp.Or(BuildTime, "unknown")
	if TestMode != "" {
		isTestMode, err := strconv.ParseBool(TestMode)
		if err != nil {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false.", "testMode", TestMode, "error", err)
		}
		IsTestMode = isTestMode
	}
}

// BuildInfo returns the build information of the running binary as a slog group.
func BuildInfo() slog.Attr {
	return slog.Group("build",
		"version", Version,
		"commit", Commit,
		"built", BuildTime,
		"uptime", time.Since(StartTime).Round(time.Second).String(),
	)
}

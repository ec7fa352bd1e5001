// Package version holds build metadata, set with -ldflags at release time:
//
//	go build -ldflags "-X sona/pkg/version.Version=1.2.0 -X sona/pkg/version.GitCommit=$(git rev-parse --short HEAD)"
package version

var (
	Version   = "0.3.0-dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Package buildinfo carries build-time information injected via ldflags.
package buildinfo

// Version is set at build time:
//
//	go build -ldflags "-X github.com/trainlog/trainlog/internal/buildinfo.Version=v1.0.0"
var Version = "dev"

// GetVersion returns the build version, "dev" for untagged builds.
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

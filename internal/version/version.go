// Package version holds the tsrepl version string, set at build time via
// -ldflags when releasing.
package version

var Version = "0.1.0"

func String() string {
	return "v" + Version
}

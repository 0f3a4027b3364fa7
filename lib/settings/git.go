package settings

import (
	"runtime/debug"
)

// GitVersion returns the module version or the VCS revision the binary was
// built from, empty when neither is stamped.
func GitVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return ""
	}

	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}

	var rev, modified string
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			rev = s.Value
		}
		if s.Key == "vcs.modified" {
			modified = s.Value
		}
	}
	if rev != "" {
		if modified == "true" {
			return rev + "-dirty"
		}
		return rev
	}

	return ""
}

// BuildInfo returns the module version and the VCS revision, for the
// health endpoint.
func BuildInfo() (string, string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "dev", ""
	}

	version := bi.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}

	var rev string
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			rev = s.Value
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return version, rev
}

package app

import (
	"github.com/spf13/pflag"

	"github.com/coursechat-io/coursechat/pkg/version"
)

// GetVersion returns the version string.
func GetVersion() string {
	return version.Get().GitVersion
}

// GetVersionInfo returns the full version information.
func GetVersionInfo() version.Info {
	return version.Get()
}

// AddVersionFlags adds version-related flags to the flagset.
func AddVersionFlags(fs *pflag.FlagSet) {
	version.AddFlags(fs)
}

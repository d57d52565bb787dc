// Package version holds build-time version information. The variables are
// meant to be overridden with -ldflags at build time:
//
//	go build -ldflags "-X github.com/coursechat-io/coursechat/pkg/version.gitVersion=v1.0.0"
package version

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"
)

var (
	gitVersion = "v0.0.0-master+unknown"
	gitCommit  = "unknown"
	buildDate  = "1970-01-01T00:00:00Z"
)

// Info describes the build.
type Info struct {
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
	Compiler   string `json:"compiler"`
	Platform   string `json:"platform"`
}

// String returns the human-readable version string.
func (i Info) String() string {
	return i.GitVersion
}

// Get returns the build information.
func Get() Info {
	return Info{
		GitVersion: gitVersion,
		GitCommit:  gitCommit,
		BuildDate:  buildDate,
		GoVersion:  runtime.Version(),
		Compiler:   runtime.Compiler,
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

var versionFlag bool

// AddFlags registers the --version flag on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&versionFlag, "version", false, "Print version information and quit")
}

// PrintAndExitIfRequested prints version information and exits when the
// --version flag was set.
func PrintAndExitIfRequested() {
	if !versionFlag {
		return
	}

	info := Get()
	fmt.Printf("%s\n", info.GitVersion)
	fmt.Printf("  commit:     %s\n", info.GitCommit)
	fmt.Printf("  built:      %s\n", info.BuildDate)
	fmt.Printf("  go version: %s\n", info.GoVersion)
	fmt.Printf("  platform:   %s\n", info.Platform)
	os.Exit(0)
}

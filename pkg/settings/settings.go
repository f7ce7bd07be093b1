// Package settings provides build metadata, per-run options and context
// helpers shared by the jtv commands.
package settings

import "fmt"

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "jtv"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime)
}

// Input describes where the document of a run comes from.
type Input struct {
	Path      string
	FromStdin bool
}

// Name is the document name used in logs and export file names.
func (i Input) Name() string {
	if i.FromStdin || i.Path == "" || i.Path == "-" {
		return "stdin"
	}
	return i.Path
}

// Run holds the options of a single execution.
type Run struct {
	MinLogLevel int8
	ConfigPath  string
	Input       Input
	Interactive bool
	IsQuiet     bool
	NoColor     bool
	ExitOnError bool
}

// NewCliParams returns the defaults for a CLI run.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		IsQuiet:     false,
		NoColor:     false,
		ExitOnError: true,
	}
}

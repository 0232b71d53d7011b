// Package version holds build metadata set with -ldflags at link time.
package version

// Overridden by the build, e.g. -X corpsite/internal/version.Version=v1.4.0
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)

// Info is the payload served by the /version endpoints
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Get returns the build metadata for the named binary
func Get(service string) Info {
	return Info{
		Service:   service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}

// String renders a short one-line form for startup logs and the CLI
func (i Info) String() string {
	s := i.Version
	if i.Commit != "" && i.Commit != i.Version {
		s += " (" + i.Commit + ")"
	}
	if i.BuildTime != "" && i.BuildTime != "unknown" {
		s += " built " + i.BuildTime
	}
	return s
}

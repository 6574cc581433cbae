package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC()

// Info is what /health reports about the running binary
type Info struct {
	Version    string `json:"version"`
	BuildTime  string `json:"buildTime,omitempty"`
	CommitHash string `json:"commit,omitempty"`
	StartTime  string `json:"startTime"`
	Uptime     string `json:"uptime"`
}

// Current returns the build info with the uptime as of now
func Current() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
		StartTime:  StartTime.Format(time.RFC3339),
		Uptime:     time.Since(StartTime).Round(time.Second).String(),
	}
}

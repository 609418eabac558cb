// Package buildinfo carries the build identity, stamped with
//
//	-ldflags "-X ember/internal/buildinfo.Version=v0.1.0 -X ember/internal/buildinfo.Commit=..."
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, else the commit, else "dev".
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		if len(Commit) > 12 {
			return Commit[:12]
		}
		return Commit
	}
	return "dev"
}

// Long is Short plus the build date when one was stamped.
func Long() string {
	if Date == "" || Date == "unknown" {
		return Short()
	}
	return Short() + " (" + Date + ")"
}

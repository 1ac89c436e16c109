package version

// Set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = ""
)

// String returns the human-readable version line printed by the CLI.
func String() string {
	if Commit == "" {
		return Version
	}
	c := Commit
	if len(c) > 12 {
		c = c[:12]
	}
	return Version + " (" + c + ")"
}

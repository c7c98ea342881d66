// Package version carries build metadata, injected at link time via
// -ldflags on the github.com/your-org/workflow-analyzer/internal/version
// variables.
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String renders the metadata for the version subcommand.
func String() string {
	return fmt.Sprintf("version=%s commit=%s build_date=%s", Version, Commit, BuildDate)
}

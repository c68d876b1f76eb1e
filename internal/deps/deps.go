// Package deps resolves the external executables slidesift shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"slidesift/internal/services"
)

// Requirement defines an external dependency slidesift relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Hint tells the operator how to install the dependency.
	Hint     string
	Optional bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Hint        string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Hint:        strings.TrimSpace(req.Hint),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// Require fails with services.ErrMissingDependency when any required
// dependency is unavailable. The message lists every missing binary and its
// install hint.
func Require(requirements []Requirement) error {
	missing := Missing(CheckBinaries(requirements))
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, 0, len(missing))
	for _, status := range missing {
		part := fmt.Sprintf("%s (%s)", status.Name, status.Detail)
		if status.Hint != "" {
			part += ": " + status.Hint
		}
		parts = append(parts, part)
	}
	return services.Wrap(services.ErrMissingDependency, "preflight", "resolve binaries",
		"missing dependencies: "+strings.Join(parts, "; "), nil)
}

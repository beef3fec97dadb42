package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// versionTimeout bounds a version probe so a wedged binary cannot stall a
// readiness check.
const versionTimeout = 5 * time.Second

var errNoVersion = errors.New("version probe printed nothing")

// Requirement is an external executable foldsweep shells out to.
type Requirement struct {
	Name    string
	Command string
	// VersionArgs, when set, are run against the resolved binary and the
	// first output line is reported as its version.
	VersionArgs []string
	Optional    bool
}

// Status reports whether a requirement can be executed.
type Status struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Path      string
	Version   string
	// VersionErr is set when a requested version probe failed. The binary
	// still counts as available.
	VersionErr error
	Detail     string
}

// CheckBinaries resolves each requirement on PATH and probes its version.
// A failed probe leaves Version empty without marking the binary missing.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:     req.Name,
			Command:  strings.TrimSpace(req.Command),
			Optional: req.Optional,
		}
		switch path, err := exec.LookPath(status.Command); {
		case status.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		default:
			status.Available = true
			status.Path = path
			if len(req.VersionArgs) > 0 {
				status.Version, status.VersionErr = probeVersion(ctx, path, req.VersionArgs)
			}
			status.Detail = path
			if status.Version != "" {
				status.Detail = fmt.Sprintf("%s (%s)", path, status.Version)
			}
		}
		results = append(results, status)
	}
	return results
}

func probeVersion(ctx context.Context, path string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", filepath.Base(path), strings.Join(args, " "), err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", errNoVersion
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

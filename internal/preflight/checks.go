package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"foldsweep/internal/config"
	"foldsweep/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDir verifies that the directory exists and can be listed.
func CheckReadableDir(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckTargetDB verifies that a search database exists. Databases are
// addressed by prefix, so either the prefix itself or its .dbtype companion
// must be present.
func CheckTargetDB(name, prefix string) Result {
	if prefix == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	for _, candidate := range []string{prefix, prefix + ".dbtype"} {
		if _, err := os.Stat(candidate); err == nil {
			if err := unix.Access(candidate, unix.R_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", candidate, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (found)", prefix)}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: database not found)", prefix)}
}

// CheckSystemDeps resolves the search binary and reports its version.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, []deps.Requirement{
		{
			Name:        "Search tool",
			Command:     cfg.Search.Binary,
			VersionArgs: []string{"version"},
		},
	})
}

package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"setbreak/internal/config"
	"setbreak/internal/deps"
)

// minTempSpace covers a few concurrent ffmpeg decodes of long sets to 24-bit PCM.
const minTempSpace = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results never block a run.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Database directory", filepath.Dir(cfg.Paths.Database)))

	if cfg.Paths.TempDir != "" {
		results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
		space := CheckFreeSpace("Temp space", cfg.Paths.TempDir, minTempSpace)
		space.Optional = true
		results = append(results, space)
	}

	if cfg.Paths.LibraryDir != "" {
		library := CheckDirectoryReadable("Library directory", cfg.Paths.LibraryDir)
		library.Optional = true
		results = append(results, library)
	}

	for _, status := range deps.WithVersions(ctx, CheckSystemDeps(cfg)) {
		detail := status.Detail
		if status.Available {
			detail = status.Command + " (" + status.Detail + ")"
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Detail:   detail,
			Optional: status.Optional,
		})
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

// Summary joins failed check names for error messages.
func Summary(results []Result) string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name+": "+r.Detail)
	}
	return strings.Join(names, "; ")
}

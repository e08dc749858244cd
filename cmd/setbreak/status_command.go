package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"setbreak/internal/config"
	"setbreak/internal/preflight"
	"setbreak/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, external tools and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				checks := preflight.RunAll(cmd.Context(), cfg)
				migrations, err := st.AppliedMigrations(cmd.Context())
				if err != nil {
					return err
				}
				writer := writerLockState(cfg.Paths.Database)

				if asJSON {
					return writeJSON(cmd, statusJSON{
						Database:   st.Path(),
						Migrations: migrations,
						Writer:     writer,
						Checks:     checkViews(checks),
						Ready:      len(preflight.Failed(checks)) == 0,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderPairs("Database", [][2]string{
					{"Path", st.Path()},
					{"Migrations", fmt.Sprintf("%d (%s)", len(migrations), strings.Join(migrations, ", "))},
					{"Writer lock", writer},
				}))
				rows := make([][]string, 0, len(checks))
				for _, c := range checks {
					state := "ok"
					switch {
					case !c.Passed && c.Optional:
						state = "warn"
					case !c.Passed:
						state = "FAIL"
					}
					rows = append(rows, []string{c.Name, state, c.Detail})
				}
				fmt.Fprintln(out, renderTable("Checks", []string{"Check", "State", "Detail"}, rows, nil))
				if failed := preflight.Failed(checks); len(failed) > 0 {
					return fmt.Errorf("%d required check(s) failed", len(failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type checkJSON struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

type statusJSON struct {
	Database   string      `json:"database"`
	Migrations []string    `json:"migrations"`
	Writer     string      `json:"writer_lock"`
	Checks     []checkJSON `json:"checks"`
	Ready      bool        `json:"ready"`
}

func checkViews(results []preflight.Result) []checkJSON {
	out := make([]checkJSON, 0, len(results))
	for _, r := range results {
		out = append(out, checkJSON{Name: r.Name, Passed: r.Passed, Optional: r.Optional, Detail: r.Detail})
	}
	return out
}

// writerLockState probes the writer lock without holding it.
func writerLockState(dbPath string) string {
	lock, err := store.AcquireLock(dbPath)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return "held by another process"
		}
		return "unknown: " + err.Error()
	}
	_ = lock.Release()
	return "free"
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"setbreak/internal/catalog"
	"setbreak/internal/config"
	"setbreak/internal/store"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Catalog audio files (defaults to paths.library_dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				roots := args
				if len(roots) == 0 {
					if cfg.Paths.LibraryDir == "" {
						return errors.New("no directory given and paths.library_dir is not set")
					}
					roots = []string{cfg.Paths.LibraryDir}
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				res, err := catalog.NewScanner(cfg, st, logger).Scan(runCtx, roots, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Scanned %s files: %s new, %s updated (%s changed), %s unchanged, %s errors in %s\n",
					formatCount(res.Scanned), formatCount(res.New), formatCount(res.Updated),
					formatCount(res.Changed), formatCount(res.Skipped), formatCount(res.Errors),
					res.Elapsed.Round(1e6),
				)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-read files even when size and mtime are unchanged")
	return cmd
}

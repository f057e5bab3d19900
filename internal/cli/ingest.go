package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/ingest"
)

// ingestCommand creates the ingest command.
func (c *CLI) ingestCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest <manifest.json>",
		Short: "Merge an external package manifest into the database",
		Long: `Ingest reads a vendor-produced manifest describing externally-installed
packages, reconstructs their dependency graph, and merges the specs and
normalized compiler descriptions into the configured package database.

Ingestion is idempotent: re-running the same manifest skips entries whose
content hash already exists in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			path := args[0]

			if err := errors.ValidateManifestFilename(filepath.Base(path)); err != nil {
				return err
			}

			if dryRun {
				return c.runDryIngest(cmd, path)
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			spin := newSpinner(ctx, fmt.Sprintf("Ingesting %s...", filepath.Base(path)))
			spin.Start()

			prog := newProgress(logger)
			res, err := ingest.New(st, logger).RunFile(ctx, path)
			if err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			spin.Stop()
			prog.done(fmt.Sprintf("Merged %d specs", res.Merge.SpecsAdded))

			printSuccess("Manifest merged")
			printDetail("specs:      %d new, %d already present", res.Merge.SpecsAdded, res.Merge.SpecsSkipped)
			printDetail("compilers:  %d new, %d already present", res.Merge.CompilersAdded, res.Merge.CompilersSkipped)
			printDetail("run:        %s", res.RunID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decode and build the graph without merging")
	return cmd
}

// runDryIngest decodes and links the manifest against the database's current
// view, surfacing the failures a real ingestion would, without merging.
func (c *CLI) runDryIngest(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := ingest.New(st, logger).DryRunFile(ctx, path)
	if err != nil {
		printError("%s", errors.UserMessage(err))
		return err
	}

	printInfo("Dry run: nothing merged")
	printDetail("specs:      %d", res.Specs)
	printDetail("compilers:  %d", res.Compilers)
	return nil
}

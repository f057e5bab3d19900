package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/export"
	"github.com/pkgdepot/depot/pkg/spec"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var byName string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export [hash]",
		Short: "Render the dependency graph of merged specs as DOT or SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 0 && byName == "" {
				return errors.New(errors.ErrCodeInvalidInput, "provide a hash argument or --name")
			}
			if format != "dot" && format != "svg" {
				return errors.New(errors.ErrCodeInvalidInput,
					"invalid format %q (must be dot or svg)", format)
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

			var roots []*spec.Spec
			if byName != "" {
				roots, err = st.QueryByName(ctx, byName)
				if err != nil {
					return err
				}
				if len(roots) == 0 {
					return errors.New(errors.ErrCodeNotFound, "no specs named %q", byName)
				}
			} else {
				s, err := st.QueryByHash(ctx, args[0])
				if err != nil {
					return err
				}
				roots = []*spec.Spec{s}
			}

			dot := export.ToDOT(roots)
			data := []byte(dot)
			if format == "svg" {
				data, err = export.RenderSVG(ctx, dot)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
				}
			}

			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Graph exported")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&byName, "name", "", "export all specs with this package name")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format (dot, svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

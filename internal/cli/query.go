package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var byName string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query [hash]",
		Short: "Look up merged specs by content hash or package name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 0 && byName == "" {
				return errors.New(errors.ErrCodeInvalidInput, "provide a hash argument or --name")
			}
			if len(args) == 1 && byName != "" {
				return errors.New(errors.ErrCodeInvalidInput, "hash argument and --name are mutually exclusive")
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

			var specs []*spec.Spec
			if byName != "" {
				specs, err = st.QueryByName(ctx, byName)
				if err != nil {
					return err
				}
				if len(specs) == 0 {
					printInfo("No specs named %q", byName)
					return nil
				}
			} else {
				s, err := st.QueryByHash(ctx, args[0])
				if err != nil {
					return err
				}
				specs = []*spec.Spec{s}
			}

			if asJSON {
				return printSpecsJSON(specs)
			}
			for _, s := range specs {
				printSpec(s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&byName, "name", "", "query all specs with this package name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit records as JSON")
	return cmd
}

// compilersCommand creates the compilers command.
func (c *CLI) compilersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compilers",
		Short: "List normalized compiler specs in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			compilers, err := st.Compilers(ctx)
			if err != nil {
				return err
			}
			if len(compilers) == 0 {
				printInfo("No compilers in the database")
				return nil
			}
			for _, comp := range compilers {
				fmt.Println(StyleTitle.Render(comp.String()))
				printKeyValue("target", comp.OS+"-"+comp.Target)
				if comp.Paths.CC != "" {
					printKeyValue("cc", comp.Paths.CC)
				}
				if comp.Paths.CXX != "" {
					printKeyValue("cxx", comp.Paths.CXX)
				}
				if comp.Paths.FC != "" {
					printKeyValue("fc", comp.Paths.FC)
				}
			}
			return nil
		},
	}
}

// printSpec writes one spec in human-readable form.
func printSpec(s *spec.Spec) {
	fmt.Println(StyleTitle.Render(s.String()))
	printKeyValue("arch", s.Arch.String())
	printKeyValue("compiler", s.Compiler.Name+"@"+s.Compiler.Version)
	if s.Prefix != "" {
		printKeyValue("prefix", s.Prefix)
	}
	if len(s.Parameters) > 0 {
		printKeyValue("parameters", fmt.Sprintf("%d", len(s.Parameters)))
	}
	for _, e := range s.Dependencies {
		printDetail("%s %s (%s)", iconArrow, e.To.String(), strings.Join(e.Types, ","))
	}
}

// printSpecsJSON writes spec records as an indented JSON array to stdout.
func printSpecsJSON(specs []*spec.Spec) error {
	records := make([]spec.Record, 0, len(specs))
	for _, s := range specs {
		records = append(records, s.Record())
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

package cli

import (
	"fmt"
	"os"

	"github.com/kolah/spectest/internal/codegen"
	"github.com/kolah/spectest/internal/config"
	"github.com/kolah/spectest/internal/loader"
	"github.com/kolah/spectest/internal/model"
	"github.com/kolah/spectest/internal/output"
	"github.com/kolah/spectest/internal/selector"
	"github.com/spf13/cobra"
)

func MakeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "make NAME API_PATH...",
		Aliases: []string{"make:test"},
		Short:   "Scaffold a test suite for the selected API operations",
		Long: `Scaffold a test suite for the selected API operations.

NAME is the suite name, optionally prefixed with directories
(for example "users/UserAPI"). The file is written to
TESTS_DIR/NAMESPACE/<dirs>/<name>_test.go.

API_PATH selects operations as "METHODS:PATH" or "PATH", for example
"get,post:/users" or "/users/{id}". With --tags the arguments are
operation tags instead.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runMake,
	}

	config.BindFlags(cmd)

	return cmd
}

func runMake(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	result, err := loader.LoadFile(cfg.OpenAPIPath)
	if err != nil {
		return fmt.Errorf("loading OpenAPI definition: %w", err)
	}
	printWarnings(cmd, result.Warnings)
	cmd.PrintErrf("OpenAPI definition loaded from %s.\n", result.Path)

	dest, err := output.Resolve(cfg.TestsDir, cfg.Namespace, args[0])
	if err != nil {
		return err
	}

	exists := output.Exists(dest.Path)
	if exists && !cfg.Force && !cfg.Append {
		return fmt.Errorf("%w: %s (use --force to overwrite or --append to add tests)", output.ErrExists, dest.Path)
	}

	var (
		sel      *model.Selection
		warnings []string
	)
	if cfg.Tags {
		sel, warnings, err = selector.FromTags(result.Model(), args[1:])
	} else {
		sel, warnings, err = selector.FromPaths(result.Model(), args[1:])
	}
	printWarnings(cmd, warnings)
	if err != nil {
		return err
	}

	gen, err := codegen.New(cfg)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	var out *codegen.Output
	if exists && cfg.Append {
		existing, err := os.ReadFile(dest.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", dest.Path, err)
		}
		out, err = gen.Append(sel, dest, existing)
		if err != nil {
			return fmt.Errorf("generating tests: %w", err)
		}
	} else {
		out, err = gen.Generate(sel, dest, result.BaseName())
		if err != nil {
			return fmt.Errorf("generating tests: %w", err)
		}
	}
	printWarnings(cmd, out.Warnings)

	if cfg.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "// %s\n%s", out.Filename, out.Content)
		return nil
	}

	if err := output.Write(out.Filename, []byte(out.Content), output.Mode{Force: cfg.Force, Append: cfg.Append}); err != nil {
		return err
	}
	cmd.PrintErrf("Written: %s (%d tests)\n", out.Filename, len(out.Functions))

	return nil
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
}

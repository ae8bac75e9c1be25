package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/abdul-hamid-achik/smokecheck/packages/suite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [case files or directories...]",
	Short: "Check case files and schema references without sending requests",
	Long: `Validate case files for syntax errors and check that every schema they
reference can be loaded, without executing any request.

Examples:
  smokecheck validate
  smokecheck validate ./cases/ --schema-dir ./schemas`,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&configFlag, "config", getEnvString("SMOKECHECK_CONFIG", ""), "Path to config file (env: SMOKECHECK_CONFIG)")
	validateCmd.Flags().StringVar(&schemaDirFlag, "schema-dir", getEnvString("SMOKECHECK_SCHEMA_DIR", ""), "Read JSON schemas from this directory (env: SMOKECHECK_SCHEMA_DIR)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	if schemaDirFlag != "" {
		cfg.SchemaDir = schemaDirFlag
	}

	files, err := caseFiles(cfg, args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	var cases []*suite.Case
	if cfg.GetBuiltin() {
		cases = append(cases, suite.Builtin()...)
	}

	targets := cfg.TargetURLs()
	hasErrors := false
	for _, file := range files {
		loaded, err := suite.LoadFiles([]string{file})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		valid := true
		for _, c := range loaded {
			if err := c.CheckTarget(targets); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
				valid = false
			}
		}
		if !valid {
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d cases)\n", file, len(loaded))
		cases = append(cases, loaded...)
	}

	loader := schemaLoader(cfg)
	checked := make(map[string]bool)
	for _, c := range cases {
		for _, name := range c.Schemas() {
			if checked[name] {
				continue
			}
			checked[name] = true
			if _, err := loader.Load(name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s (case %s): %v\n", describeSource(c.Source), c.Name, err)
				hasErrors = true
			}
		}
	}
	if !hasErrors {
		fmt.Fprintf(cmd.OutOrStdout(), "Schemas: %d resolved from %s\n", len(checked), loader.Origin())
	}

	if hasErrors {
		return exitf(ExitParseError, "validation failed")
	}

	return nil
}

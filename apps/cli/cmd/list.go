package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [case files or directories...]",
	Short: "List the cases a run would execute",
	Long: `List the built-in cases and the cases defined in YAML files or Excel
workbooks, with their target, request line and tags.

Examples:
  smokecheck list
  smokecheck list ./cases/ --no-builtin`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&configFlag, "config", getEnvString("SMOKECHECK_CONFIG", ""), "Path to config file (env: SMOKECHECK_CONFIG)")
	listCmd.Flags().BoolVar(&noBuiltinFlag, "no-builtin", getEnvBool("SMOKECHECK_NO_BUILTIN", false), "Skip the built-in catalog (env: SMOKECHECK_NO_BUILTIN)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	if noBuiltinFlag {
		cfg.Builtin = config.BoolPtr(false)
	}

	files, err := caseFiles(cfg, args)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	cases, err := loadCases(cfg, files)
	if err != nil {
		return &ExitError{Code: ExitParseError, Err: err}
	}

	source := "\x00"
	for _, c := range cases {
		if c.Source != source {
			source = c.Source
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", describeSource(source))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s  [%s] %s %s\n", c.Name, c.Target, c.Method, c.Path)
		if len(c.Tags) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(c.Tags, ", "))
		}
	}

	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/abdul-hamid-achik/smokecheck/packages/suite"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a smokecheck project",
	Long: `Initialize a smokecheck project in the current directory.

This creates:
  - smokecheck.yaml      - Configuration with the reqres and catfact targets
  - cases/example.yaml   - Example case file run alongside the built-in catalog

Examples:
  smokecheck init
  smokecheck init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleCases = `cases:
  - name: list_users_page_two
    target: reqres
    method: GET
    path: /api/users
    query:
      page: "2"
    tags: [reqres, users, example]
    status: 200
    expect:
      - kind: equals
        path: page
        expected: 2
      - kind: exists
        path: data.0.email

  - name: cat_fact_has_length
    target: catfact
    method: GET
    path: /fact
    tags: [catfact, example]
    status: 200
    schema: cat_fact
    expect:
      - kind: exists
        path: length
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "cases", "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitf(ExitUsageError, "file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	// Keep the key out of the file; it is expanded when the config loads.
	reqres := cfg.Targets[suite.TargetReqres]
	reqres.Headers = map[string]string{"x-api-key": "${REQRES_API_KEY:-" + config.DefaultReqresAPIKey + "}"}
	cfg.Targets[suite.TargetReqres] = reqres
	cfg.Cases = []string{"cases"}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.MkdirAll(filepath.Dir(exampleFile), 0755); err != nil {
		return fmt.Errorf("failed to create cases directory: %w", err)
	}
	if err := os.WriteFile(exampleFile, []byte(exampleCases), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nsmokecheck project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'smokecheck run' to execute the built-in catalog and the example cases.\n")

	return nil
}

package cmd

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/abdul-hamid-achik/smokecheck/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historyRunFlag   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded smoke runs",
	Long: `Show runs recorded with --history, newest first, or the per-case
results of one run.

Examples:
  smokecheck history --history smoke.db
  smokecheck history --history smoke.db --limit 5
  smokecheck history --history smoke.db --run 6f1c...`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("SMOKECHECK_CONFIG", ""), "Path to config file (env: SMOKECHECK_CONFIG)")
	historyCmd.Flags().StringVar(&historyFlag, "history", getEnvString("SMOKECHECK_HISTORY", ""), "SQLite history file (env: SMOKECHECK_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "l", getEnvInt("SMOKECHECK_HISTORY_LIMIT", 20), "Number of runs to show, 0 for all (env: SMOKECHECK_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Show the case results of this run ID")
	historyCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("SMOKECHECK_NO_COLOR", false), "Disable colored output (env: SMOKECHECK_NO_COLOR)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path := historyFlag
	if path == "" {
		cfg, err := config.LoadConfig(configFlag)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		path = cfg.History
	}
	if path == "" {
		return exitf(ExitUsageError, "no history file: pass --history or set history in the config")
	}
	if noColorFlag {
		color.NoColor = true
	}

	store, err := history.Open(path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if historyRunFlag != "" {
		cases, err := store.Cases(commandContext(cmd), historyRunFlag)
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			return exitf(ExitUsageError, "no results recorded for run %s", historyRunFlag)
		}
		for _, c := range cases {
			var status string
			switch c.Status {
			case "passed":
				status = green(c.Status)
			case "skipped":
				status = yellow(c.Status)
			default:
				status = red(c.Status)
			}
			fmt.Fprintf(out, "  %-8s %-34s %-8s %6dms", status, c.Name, c.Target, c.Duration.Milliseconds())
			if c.Message != "" {
				fmt.Fprintf(out, "  %s", c.Message)
			}
			fmt.Fprintln(out)
		}
		return nil
	}

	runs, err := store.Recent(commandContext(cmd), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded in %s\n", store.Path())
		return nil
	}

	for _, run := range runs {
		summary := green(fmt.Sprintf("%d passed", run.Passed))
		if run.Failed > 0 {
			summary += ", " + red(fmt.Sprintf("%d failed", run.Failed))
		}
		if run.Skipped > 0 {
			summary += ", " + yellow(fmt.Sprintf("%d skipped", run.Skipped))
		}
		fmt.Fprintf(out, "%s  %s  %s  %dms", run.ID, run.StartedAt.Local().Format(time.DateTime), summary, run.Duration.Milliseconds())
		if run.P95 > 0 {
			fmt.Fprintf(out, "  p95 %dms", run.P95.Milliseconds())
		}
		fmt.Fprintln(out)
	}
	return nil
}

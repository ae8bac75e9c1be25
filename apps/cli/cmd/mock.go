package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag     int
	mockDelayFlag    string
	mockMaxDelayFlag string
	mockAPIKeyFlag   string
	mockVerboseFlag  bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a local stand-in for the reqres and catfact endpoints",
	Long: `Start an HTTP server answering the reqres.in and catfact.ninja routes the
built-in catalog uses. It is meant for drafting case files offline; point a
target at it with a config override. Smoke runs should target the live
services.

Examples:
  smokecheck mock
  smokecheck mock --port 3000 --delay 100ms
  smokecheck mock --api-key reqres-free-v1 --verbose`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("SMOKECHECK_MOCK_PORT", 3000), "Port to run the mock server on (env: SMOKECHECK_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().StringVar(&mockMaxDelayFlag, "max-delay", "", "Cap the ?delay=N seconds honoured by GET /api/users (e.g., 500ms)")
	mockCmd.Flags().StringVar(&mockAPIKeyFlag, "api-key", "", "Require this x-api-key on /api routes")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
}

func parseOptionalDuration(name, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func mockCommand(cmd *cobra.Command, args []string) error {
	delay, err := parseOptionalDuration("delay", mockDelayFlag)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}
	maxDelay, err := parseOptionalDuration("max-delay", mockMaxDelayFlag)
	if err != nil {
		return &ExitError{Code: ExitUsageError, Err: err}
	}

	verbosity := 1
	if mockVerboseFlag {
		verbosity = 2
	}
	log := newLogger(cmd.ErrOrStderr(), verbosity, noColorFlag)

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithLogger(log),
	}
	if maxDelay > 0 {
		opts = append(opts, mock.WithMaxDelay(maxDelay))
	}
	if mockAPIKeyFlag != "" {
		opts = append(opts, mock.WithAPIKey(mockAPIKeyFlag))
	}
	server := mock.NewServer(opts...)

	for _, route := range server.Routes() {
		log.Debugf("route %s %s (%s)", route.Method, route.PathPattern, route.Name)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down mock server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return server.StartWithContext(ctx)
}

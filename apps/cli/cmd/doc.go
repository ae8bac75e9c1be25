// Package cmd implements the smokecheck CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the built-in catalog and any case files
//   - validate: Check case files and schema references without executing
//   - list: Display the cases a run would execute
//   - history: Show runs recorded in the SQLite history file
//   - init: Create a config file and an example case file
//   - mock: Serve a local stand-in for the demo APIs
//   - version: Show smokecheck version information
//
// Commands return an *ExitError to choose the process exit code.
package cmd

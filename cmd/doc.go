// Package cmd implements the command-line interface for dayboard.
//
// This package provides the following commands:
//   - serve: Start the dashboard API server
//   - disconnect: Remove a user's stored Google credential (operator tool)
//   - generate-docs: Generate markdown documentation for the HTTP API
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd

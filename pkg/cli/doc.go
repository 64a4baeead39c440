// Package cli provides output helpers for the pelohub command-line tool.
//
// This package includes:
//   - Output formatting (YAML, JSON, table) with optional jq filtering
//   - Table rendering
//   - Styled status messages
//
// Example usage:
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".per_class",
//	})
package cli

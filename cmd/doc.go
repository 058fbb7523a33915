// Package cmd implements the command-line interface of dDoc. It provides a
// hierarchical command structure for running the HTTP server and for working
// with a data directory directly.
//
// The package is organized into several subpackages:
//
//   - col: Commands for collection operations (create, drop, list)
//   - doc: Commands for document operations (insert, find, list, update, delete)
//   - serve: Command for starting and configuring the dDoc HTTP server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// The commands operating on a data directory open it directly. Do not run them
// against a directory that is served by a running server at the same time,
// the server would overwrite their changes with its next snapshot.
//
// See ddoc -help for a list of all commands.
package cmd

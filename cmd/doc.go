// Package cmd implements the dkvc command-line interface. Every command opens
// the project root through a connector.Session, so the CLI exercises the same
// connection caching the library offers.
//
// The package is organized into several subpackages:
//
//   - tree: Commands operating on the project root (ls, get, set, del, mk, add, rem, bench)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dkvc -help for a list of all commands.
package cmd

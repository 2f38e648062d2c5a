// Package cmd implements the command-line interface for dEcho. It provides
// commands for running the server and for talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting the dEcho server on one or more endpoints
//   - client: Commands for sending echo and add requests and for load testing
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set through environment variables with the DECHO_ prefix
// (e.g. DECHO_SERIALIZER=json). See decho -help for a list of all commands.
package cmd

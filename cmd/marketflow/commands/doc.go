// Package commands defines the marketflow CLI.
//
// Commands
//
//   - run            Deploy the token and marketplace, list an order, buy it, print balances
//   - balance        Print native (and optionally token) balances of addresses
//   - order          Print an order held by a deployed marketplace
//   - config show    Print the effective configuration as YAML
//
// The root command loads the YAML config and builds the logger before any
// subcommand runs; subcommands dial the node themselves.
package commands

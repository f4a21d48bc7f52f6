// Package cmd implements the clavr command line interface: serving the
// backend over HTTP or MCP stdio, authorizing Google accounts, and running
// one-off data exports.
package cmd

// Package assistant_tools registers the natural-language assistant and the
// data-export operations as MCP tools for the stdio transport.
package assistant_tools

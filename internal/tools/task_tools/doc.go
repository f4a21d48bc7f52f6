// Package task_tools registers direct task store operations as MCP tools,
// bypassing the classifier for clients that want structured access.
package task_tools

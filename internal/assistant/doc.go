// Package assistant executes parsed queries against Gmail, Google Calendar,
// and the local task store. Every executed query is recorded in the query
// log and announced to webhook subscribers; classification outcomes feed the
// classifier metrics.
package assistant

// Package export assembles per-user data archives for GDPR access requests.
// An archive is a zip of JSON documents (profile, tasks, query history,
// webhook subscriptions) written to the export directory. Assembly runs as a
// background job; completion is announced with an export.ready webhook event.
package export

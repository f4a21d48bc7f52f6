// Package server exposes the assistant over a REST API: session
// authentication, natural-language queries, task CRUD, webhook subscription
// management, and GDPR export handling. Prometheus metrics are served from a
// dedicated port so operational data never shares a listener with user
// traffic.
package server

// Package webhook delivers application events to user-registered HTTP
// endpoints. Payloads are signed with a per-subscription HMAC-SHA256 secret,
// transient failures are retried with exponential backoff, and subscriptions
// that keep failing are disabled after a threshold of consecutive misses.
package webhook

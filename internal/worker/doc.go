// Package worker provides a bounded in-process job queue with a fixed worker
// pool. Webhook deliveries, export assembly, and session purging run here so
// request handlers never wait on slow outbound work.
package worker

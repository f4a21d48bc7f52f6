// Package calendar provides a client for interacting with the Google
// Calendar API.
//
// It covers event listing, creation, update and deletion, calendar listing,
// and free/busy queries with a simple slot finder for scheduling meetings.
// Authentication uses the token provider abstraction from the google package.
package calendar

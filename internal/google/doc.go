// Package google provides OAuth2 authentication and token management for
// Google APIs.
//
// Tokens are stored per account in the configured token directory. The
// TokenProvider interface allows different token sources to be plugged in,
// which keeps the Gmail and Calendar clients testable without real
// credentials.
package google

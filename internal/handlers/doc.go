// Package handlers implements the HTTP API: group lifecycle and file
// endpoints, the legacy flat endpoints and health/version.
package handlers

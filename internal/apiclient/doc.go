// Package apiclient is a small HTTP client for the group API, used by
// the terminal gallery browser.
package apiclient

// Package startup handles configuration loading, directory setup and
// the structured startup/shutdown log output.
package startup

// Package logging provides leveled logging for the server.
//
// The log level is read once from the DEBUG and LOG_LEVEL environment
// variables; messages below the active level are suppressed.
package logging

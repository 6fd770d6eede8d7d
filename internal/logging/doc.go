// Package logging builds the process-wide zap logger from configuration.
//
// The logger writes structured JSON to stdout by default; a console
// format is available for local development. Constant fields from
// configuration are attached to every entry.
package logging

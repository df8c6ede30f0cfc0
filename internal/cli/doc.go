// Package cli implements the command-line interface for fourscal.
//
// The cli package provides the Cobra-based CLI with subcommands to extract an
// event (text/JSON), print a Google Calendar link, write an .ics file and
// serve the extraction API. It wires configuration, logging and metrics into
// the scraper and server packages.
package cli

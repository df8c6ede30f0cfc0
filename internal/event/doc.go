// Package event provides the event record produced by an extraction and the
// interpreter that turns free-text date strings into time spans.
//
// A Record is assembled once per extraction from the outputs of the field
// extractors. Assemble never fails: missing fields resolve to sentinel values
// and the span is normalised so the end never precedes the start.
//
// The Interpreter recognises a fixed catalogue of Japanese and English date
// shapes, tried in priority order with the first match winning. What happens
// when nothing matches is chosen when the Interpreter is constructed.
package event

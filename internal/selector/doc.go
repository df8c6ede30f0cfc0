// Package selector resolves field text from an HTML document using an ordered
// list of candidates.
//
// Each Candidate pairs a Strategy (how to locate elements) with a Predicate
// (whether the located text is plausible for the field). Candidates are tried
// in order and the first accepted text wins, so the fallback chain of a field
// is plain data rather than nested conditionals. Resolution is a pure function
// of the document and the candidate list.
package selector

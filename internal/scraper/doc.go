// Package scraper fetches 4s.link event pages and extracts a single event
// from each.
//
// Pages are fetched either with headless Chrome (RenderFetcher), which waits
// for the client-side app to render, or with a plain HTTP GET (HTTPFetcher)
// for pages that are already rendered. Field extraction walks ordered lists
// of selector candidates, because the site's class names carry generated
// suffixes that change between deploys.
//
// Failures are typed: *InputError for rejected URLs and *FetchError for pages
// that could not be retrieved. Unparseable dates surface as
// *event.DateParseError unless the interpreter is configured to fall back to
// a default window.
package scraper

// Package scraper drives the depository's shareholding search page.
//
// A Session wraps one browser tab. Opening a session loads the search page
// and waits for the search button; each Query then fills the date and stock
// code fields by direct value assignment, submits, and waits for either the
// results panel or an alert dialog.
//
// Failures fall into two classes. An alert saying the stock code does not
// exist wraps ErrSecurityUnavailable and should stop further queries for
// that code. Anything else (timeouts, unexpected page state, unparseable
// markup) is a *TransientError for that date only. Sessions never retry.
//
// ChromeFactory is the chromedp implementation. Set ScraperConfig.RemoteURL
// to attach to an existing browser's DevTools endpoint instead of launching
// a local one.
package scraper

// Package dataprocessing turns portal result markup into typed shareholding
// observations and derives the trend and transaction finder views.
//
// # Parsing
//
// ParseResultTable reads the results panel HTML with golang.org/x/net/html.
// The portal repeats every column heading inside each data cell for its
// mobile layout (div.mobile-list-heading); those nodes are removed before
// cell text is collected.
//
// # Normalizing
//
// Normalize maps the portal headings onto store columns, drops the address
// column and converts the numeric cells:
//
//	tbl, err := dataprocessing.ParseResultTableString(markup)
//	rows, err := dataprocessing.Normalize(tbl, dataprocessing.Provenance{
//	    DateRequested: day,
//	    AppliedDate:   "2024/01/05",
//	    StockCode:     5,
//	})
//
// A heading set that differs from the expected five columns yields a
// *SchemaError. A cell that cannot be converted, such as a percentage of
// "N/A", yields a *ValidationError. Both reject the whole table.
//
// # Analytics
//
// Preprocess orders and dedupes rows by (date, participant). Trend selects
// the largest holders on the latest date. Finder computes day over day
// changes and pairs buyers crossing the threshold with equal and opposite
// sellers.
package dataprocessing

package dataprocessing

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoTable is returned when the results markup contains no table
var ErrNoTable = errors.New("no table in results markup")

// mobileHeadingClass marks the per-cell header copies the portal renders for
// narrow screens. They repeat the column name inside every data cell.
const mobileHeadingClass = "mobile-list-heading"

// Table is a parsed HTML table with whitespace-collapsed cell text
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseResultTable reads the first table in markup. Mobile heading copies are
// removed before any cell text is read.
func ParseResultTable(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse results markup: %w", err)
	}

	removeMobileHeadings(doc)

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return nil, ErrNoTable
	}

	var headerRow *html.Node
	var bodyRows []*html.Node
	if thead := findFirst(tbl, atom.Thead); thead != nil {
		headerRow = findFirst(thead, atom.Tr)
		for _, tr := range findAll(tbl, atom.Tr) {
			if !hasAncestor(tr, thead) {
				bodyRows = append(bodyRows, tr)
			}
		}
	} else {
		rows := findAll(tbl, atom.Tr)
		if len(rows) > 0 {
			headerRow, bodyRows = rows[0], rows[1:]
		}
	}
	if headerRow == nil {
		return nil, fmt.Errorf("%w: table has no header row", ErrNoTable)
	}

	t := &Table{Header: cellTexts(headerRow)}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%w: header row has no cells", ErrNoTable)
	}

	for i, tr := range bodyRows {
		cells := cellTexts(tr)
		if len(cells) == 0 {
			continue
		}
		if len(cells) != len(t.Header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(cells), len(t.Header))
		}
		t.Rows = append(t.Rows, cells)
	}

	return t, nil
}

// ParseResultTableString is ParseResultTable over a string
func ParseResultTableString(markup string) (*Table, error) {
	return ParseResultTable(strings.NewReader(markup))
}

func removeMobileHeadings(root *html.Node) {
	var doomed []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Div && hasClass(n, mobileHeadingClass) {
			doomed = append(doomed, n)
		}
	})
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}

func cellTexts(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, collapseSpace(textOf(c)))
		}
	}
	return cells
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
	})
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n != root && n.Type == html.ElementNode && n.DataAtom == a {
			found = n
		}
	})
	return found
}

func findAll(root *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
	})
	return out
}

func hasAncestor(n, ancestor *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

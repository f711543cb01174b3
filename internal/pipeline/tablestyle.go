package pipeline

import "strings"

// TableClasses holds the class names injected into converter table markup.
type TableClasses struct {
	Table string
	Head  string
	Body  string
	Row   string
	Cell  string // <th> and <td>
}

// DefaultTableClasses matches the embedded stylesheet.
var DefaultTableClasses = TableClasses{
	Table: "md-table",
	Head:  "md-table-head",
	Body:  "md-table-body",
	Row:   "md-table-row",
	Cell:  "md-table-cell",
}

// tableStyle is injected on <table>; the sanitizer only keeps the
// properties it allows, so it must stay within that list.
const tableStyle = "border-collapse: collapse; width: 100%"

// TableStyler adds presentation attributes to converter table tags.
type TableStyler struct {
	replacer *strings.Replacer
}

// NewTableStyler creates a TableStyler for the given classes.
func NewTableStyler(c TableClasses) *TableStyler {
	// Longer tags first: the replacer compares in argument order.
	return &TableStyler{replacer: strings.NewReplacer(
		"<table>", `<table class="`+c.Table+`" style="`+tableStyle+`">`,
		"<thead>", `<thead class="`+c.Head+`">`,
		"<tbody>", `<tbody class="`+c.Body+`">`,
		"<tr>", `<tr class="`+c.Row+`">`,
		"<th>", `<th class="`+c.Cell+`">`,
		"<th ", `<th class="`+c.Cell+`" `,
		"<td>", `<td class="`+c.Cell+`">`,
		"<td ", `<td class="`+c.Cell+`" `,
	)}
}

// StyleTables performs literal tag-string substitution on HTML produced by
// the Markdown converter. The input must be converter output: raw HTML from
// the model is escaped by goldmark, so every "<table>" here is a real tag.
// Run it before sanitization, never after.
func (s *TableStyler) StyleTables(htmlContent string) string {
	if !strings.Contains(htmlContent, "<t") {
		return htmlContent
	}
	return s.replacer.Replace(htmlContent)
}

// Package md lifts pipe tables out of the roadmap documents.
package md

import (
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

// Table is one pipe table, tagged with the text of the heading it
// appeared under.
type Table struct {
	Section string
	Header  []string
	Rows    [][]Cell
}

// Cell keeps the rendered text of a table cell and, when the cell held a
// link, its first target.
type Cell struct {
	Text string
	Href string
}

// Tables parses data as CommonMark and returns every table in document
// order. Prose, headings and fenced blocks around the tables are skipped.
func Tables(data []byte) []Table {
	parser := markdown.New(
		markdown.HTML(true),
		markdown.Tables(true),
		markdown.Linkify(false),
		markdown.Typographer(false),
	)
	tokens := parser.Parse(data)

	tables := make([]Table, 0)
	section := ""
	inHead := false

	var cur *Table
	var row []Cell
	var cel *Cell
	for i, tok := range tokens {
		switch t := tok.(type) {
		case *markdown.HeadingOpen:
			if i+1 < len(tokens) {
				if inl, ok := tokens[i+1].(*markdown.Inline); ok {
					section = strings.TrimSpace(inlineText(inl))
				}
			}
		case *markdown.TableOpen:
			cur = &Table{Section: section}
		case *markdown.TableClose:
			if cur != nil {
				tables = append(tables, *cur)
				cur = nil
			}
		case *markdown.TheadOpen:
			inHead = true
		case *markdown.TheadClose:
			inHead = false
		case *markdown.TrOpen:
			row = make([]Cell, 0)
		case *markdown.TrClose:
			if cur == nil {
				break
			}
			if inHead {
				for _, c := range row {
					cur.Header = append(cur.Header, c.Text)
				}
			} else {
				cur.Rows = append(cur.Rows, row)
			}
			row = nil
		case *markdown.ThOpen:
			cel = &Cell{}
		case *markdown.TdOpen:
			cel = &Cell{}
		case *markdown.ThClose:
			closeCell(&row, &cel)
		case *markdown.TdClose:
			closeCell(&row, &cel)
		case *markdown.Inline:
			if cel != nil {
				fillCell(cel, t)
			}
		}
	}
	return tables
}

// Col returns the index of the named header column, matching case
// insensitively, or -1.
func (t Table) Col(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func closeCell(row *[]Cell, cel **Cell) {
	if *cel == nil {
		return
	}
	(*cel).Text = strings.TrimSpace((*cel).Text)
	*row = append(*row, **cel)
	*cel = nil
}

func fillCell(c *Cell, inl *markdown.Inline) {
	for _, tok := range inl.Children {
		switch t := tok.(type) {
		case *markdown.Text:
			c.Text += t.Content
		case *markdown.CodeInline:
			c.Text += t.Content
		case *markdown.LinkOpen:
			if c.Href == "" {
				c.Href = t.Href
			}
		case *markdown.Softbreak:
			c.Text += " "
		case *markdown.Hardbreak:
			c.Text += " "
		}
	}
}

func inlineText(inl *markdown.Inline) string {
	c := Cell{}
	fillCell(&c, inl)
	return c.Text
}

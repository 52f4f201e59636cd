package sources

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/locate918/roadmap/internal/md"
)

// ParseSources reads the catalog table out of a source list document. The
// URL cell accepts either a bare URL or a Markdown link; capacity is an
// integer or "-" for not applicable.
func ParseSources(data []byte) (Catalog, error) {
	catalog := make(Catalog, 0)
	for _, t := range md.Tables(data) {
		if !strings.EqualFold(t.Section, "Catalog") {
			continue
		}
		if err := parseCatalog(t, &catalog); err != nil {
			return nil, err
		}
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("no catalog table found")
	}
	return catalog, nil
}

// ParseSourcesFile reads path and delegates to ParseSources. LastChecked
// stays zero until the first saved probe.
func ParseSourcesFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	catalog, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

var catalogColumns = []string{"Source", "URL", "Kind", "Areas", "Categories", "Capacity", "Priority", "Status", "Notes"}

func parseCatalog(t md.Table, catalog *Catalog) error {
	cols := make(map[string]int, len(catalogColumns))
	for _, n := range catalogColumns {
		i := t.Col(n)
		if i < 0 {
			return fmt.Errorf("catalog table: missing %q column", n)
		}
		cols[n] = i
	}
	cell := func(row []md.Cell, name string) md.Cell {
		i := cols[name]
		if i >= len(row) {
			return md.Cell{}
		}
		return row[i]
	}

	seen := make(map[string]string)
	for i, row := range t.Rows {
		name := strings.TrimSpace(cell(row, "Source").Text)
		if name == "" {
			return fmt.Errorf("catalog table: row %d: empty source name", i+1)
		}
		u := cell(row, "URL")
		rawurl := u.Href
		if rawurl == "" {
			rawurl = strings.TrimSpace(u.Text)
		}
		host := Host(rawurl)
		if host == "" {
			return fmt.Errorf("source %s: unparseable URL %q", name, rawurl)
		}
		if prev, dup := seen[host]; dup {
			return fmt.Errorf("source %s: duplicate host %s (already used by %s)", name, host, prev)
		}
		seen[host] = name

		capacity, err := parseCapacity(cell(row, "Capacity").Text)
		if err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}

		*catalog = append(*catalog, Source{
			Name:       name,
			URL:        rawurl,
			Kind:       strings.ToLower(strings.TrimSpace(cell(row, "Kind").Text)),
			Areas:      splitList(cell(row, "Areas").Text),
			Categories: splitList(cell(row, "Categories").Text),
			Capacity:   capacity,
			Priority:   strings.ToLower(strings.TrimSpace(cell(row, "Priority").Text)),
			Status:     strings.ToLower(strings.TrimSpace(cell(row, "Status").Text)),
			Notes:      strings.TrimSpace(cell(row, "Notes").Text),
		})
	}
	return nil
}

func parseCapacity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	c, err := strconv.Atoi(s)
	if err != nil || c < 0 {
		return 0, fmt.Errorf("invalid capacity %q", s)
	}
	return c, nil
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks a parsed catalog for unknown kinds, priorities and
// statuses, empty names and unparseable URLs.
func Validate(catalog Catalog) error {
	if len(catalog) == 0 {
		return fmt.Errorf("empty catalog")
	}
	for _, s := range catalog {
		if s.Name == "" {
			return fmt.Errorf("source with empty name (url %s)", s.URL)
		}
		if s.Host() == "" {
			return fmt.Errorf("source %s: unparseable URL %q", s.Name, s.URL)
		}
		if !ValidKind(s.Kind) {
			return fmt.Errorf("source %s: unknown kind %q", s.Name, s.Kind)
		}
		if !ValidPriority(s.Priority) {
			return fmt.Errorf("source %s: unknown priority %q", s.Name, s.Priority)
		}
		if !ValidStatus(s.Status) {
			return fmt.Errorf("source %s: unknown status %q", s.Name, s.Status)
		}
	}
	return nil
}

// LastCheckedLabel renders the LastChecked stamp for listings.
func (s Source) LastCheckedLabel() string {
	if s.LastChecked.IsZero() {
		return "never"
	}
	return s.LastChecked.Format(time.DateOnly)
}

package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/locate918/roadmap/sources"
)

var csvHeader = []string{"name", "url", "host", "kind", "areas", "categories", "capacity", "priority", "status", "last_checked", "notes"}

// CatalogCSV renders the source catalog as CSV, one row per source, in
// catalog order.
func CatalogCSV(catalog sources.Catalog) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, s := range catalog {
		capacity := ""
		if s.Capacity > 0 {
			capacity = strconv.Itoa(s.Capacity)
		}
		lastChecked := ""
		if !s.LastChecked.IsZero() {
			lastChecked = s.LastChecked.Format("2006-01-02")
		}
		row := []string{
			s.Name,
			s.URL,
			s.Host(),
			s.Kind,
			strings.Join(s.Areas, ", "),
			strings.Join(s.Categories, ", "),
			capacity,
			s.Priority,
			s.Status,
			lastChecked,
			s.Notes,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b.Bytes(), w.Error()
}

package ical

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes wires the calendar feeds and the HTML index on a fresh router.
func Routes(path, templates, version string) http.Handler {
	h := NewHandler(path, templates, version)

	r := chi.NewRouter()
	r.Get("/", h.index)
	r.Get("/{scope}.ics", h.feed)
	r.Get("/{scope}/{year}.ics", h.feed)
	return r
}

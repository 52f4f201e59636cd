package ical

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locate918/roadmap/storage/boltdb"
)

func testFeedServer(t *testing.T) *httptest.Server {
	dbPath := filepath.Join(t.TempDir(), boltdb.DefaultFile)
	st := boltdb.New(boltdb.Config{Path: dbPath})
	require.NoError(t, st.SaveEntries(feedEntries()))

	srv := httptest.NewServer(Routes(dbPath, "missing-templates", "test"))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func body(t *testing.T, res *http.Response) string {
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestFeed(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/task.ics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/calendar; charset=utf-8", res.Header.Get("Content-Type"))
	assert.NotEmpty(t, res.Header.Get("ETag"))

	out := body(t, res)
	assert.Contains(t, out, "UID:t07@locate918.org")
	assert.NotContains(t, out, "UID:m1@", "milestones stay out of the task feed")
}

func TestFeedScopePlural(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/milestones.ics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body(t, res), "UID:m1@locate918.org")
}

func TestFeedNotModified(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/task.ics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)
	body(t, res)

	again := get(t, srv.URL+"/task.ics", http.Header{"If-None-Match": []string{etag}})
	assert.Equal(t, http.StatusNotModified, again.StatusCode)
}

func TestFeedYear(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/task/2026.ics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body(t, res), "UID:t07@locate918.org")

	empty := get(t, srv.URL+"/task/2027.ics", nil)
	require.Equal(t, http.StatusOK, empty.StatusCode, "a year with no entries is still a valid calendar")
	out := body(t, empty)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestFeedRejections(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/weekend.ics", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body(t, res), "Invalid scope")

	res = get(t, srv.URL+"/task/soon.ics", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body(t, res), "Invalid year")
}

func TestIndexFallback(t *testing.T) {
	srv := testFeedServer(t)

	res := get(t, srv.URL+"/", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))

	out := body(t, res)
	assert.Contains(t, out, "Locate918 roadmap")
	assert.Contains(t, out, "/milestone.ics")
	assert.Contains(t, out, "/task/2026.ics", "per year links cover the stored years")
}

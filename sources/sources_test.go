package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.cainsballroom.com", "cainsballroom.com"},
		{"https://WWW.Example.COM/events?x=1", "example.com"},
		{"http://tulsahurricane.com", "tulsahurricane.com"},
		{" https://www.meetup.com/find/ ", "meetup.com"},
		{"://nope", ""},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Host(tc.in), "Host(%q)", tc.in)
	}
}

func testCatalog() Catalog {
	return Catalog{
		{Name: "Meetup", URL: "https://meetup.example", Kind: KindPlatform, Priority: PriorityMedium, Status: StatusCandidate},
		{Name: "City calendar", URL: "https://city.example", Kind: KindCity, Priority: PriorityHigh, Status: StatusActive},
		{Name: "Cain's", URL: "https://cains.example", Kind: KindVenue, Priority: PriorityHigh, Status: StatusActive},
		{Name: "BOK", URL: "https://bok.example", Kind: KindVenue, Priority: PriorityHigh, Status: StatusRetired},
	}
}

func TestCatalogSort(t *testing.T) {
	c := testCatalog()
	c.Sort()

	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"BOK", "Cain's", "Meetup", "City calendar"}, names,
		"kind rank first, then name")
}

func TestCatalogFilter(t *testing.T) {
	c := testCatalog()

	assert.Len(t, c.Filter([]string{KindVenue}, nil, nil), 2)
	assert.Len(t, c.Filter(nil, []string{PriorityHigh}, nil), 3)
	assert.Len(t, c.Filter([]string{KindVenue}, nil, []string{StatusActive}), 1)
	assert.Len(t, c.Filter(nil, nil, nil), 4, "no filters keeps everything")
	assert.Empty(t, c.Filter([]string{KindMedia}, nil, nil))
}

func TestCatalogFindHosts(t *testing.T) {
	c := testCatalog()

	s, ok := c.Find("cains.example")
	require.True(t, ok)
	assert.Equal(t, "Cain's", s.Name)

	_, ok = c.Find("nowhere.example")
	assert.False(t, ok)

	assert.Equal(t, []string{"meetup.example", "city.example", "cains.example", "bok.example"}, c.Hosts())
}

func TestSourceGoString(t *testing.T) {
	s := Source{Name: "Cain's Ballroom", URL: "https://www.cainsballroom.com", Kind: KindVenue, Priority: PriorityHigh, Status: StatusActive}
	assert.Equal(t, "<[cainsballroom.com] venue:high Cain's Ballroom active>", s.GoString())
}

func TestSourceEquals(t *testing.T) {
	a := Source{Name: "A", URL: "https://a.example", Kind: KindVenue, Areas: []string{"Downtown"}, Categories: []string{"music", "arts"}}
	b := a
	b.Categories = []string{"arts", "music"}
	assert.True(t, a.Equals(b), "list order does not matter")

	b.LastChecked = time.Now()
	assert.True(t, a.Equals(b), "LastChecked is not part of identity")

	b.Capacity = 100
	assert.False(t, a.Equals(b))
}

func TestGetKinds(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty means all", in: nil, want: ValidKinds},
		{name: "all keyword", in: []string{"all"}, want: ValidKinds},
		{name: "catalog keyword", in: []string{"catalog"}, want: ValidKinds},
		{name: "plural", in: []string{"Venues"}, want: []string{KindVenue}},
		{name: "campus keeps its s", in: []string{"campus"}, want: []string{KindCampus}},
		{name: "dedupe", in: []string{"venue", "venues"}, want: []string{KindVenue}},
		{name: "unknown dropped", in: []string{"festival"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetKinds(tc.in))
		})
	}
}

func TestLastCheckedLabel(t *testing.T) {
	var s Source
	assert.Equal(t, "never", s.LastCheckedLabel())

	s.LastChecked = time.Date(2026, time.February, 27, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2026-02-27", s.LastCheckedLabel())
}

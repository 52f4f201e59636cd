package post

import (
	"html/template"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/McKael/madon"
	vocab "github.com/go-ap/activitypub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/locate918/roadmap"
	"github.com/locate918/roadmap/plan"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLine(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name  string
		entry plan.Entry
		want  string
	}{
		{
			name: "milestone",
			entry: plan.Entry{
				ID: "M1", Scope: plan.ScopeMilestone, Name: "Charter signed off",
				StartTime: date(2026, time.January, 16), Status: plan.StatusDone,
			},
			want: "M1 Charter signed off, due Jan 16: done",
		},
		{
			name: "milestone single digit day keeps stdlib padding",
			entry: plan.Entry{
				ID: "M3", Scope: plan.ScopeMilestone, Name: "Scrapers live",
				StartTime: date(2026, time.March, 6), Status: plan.StatusTodo,
			},
			want: "M3 Scrapers live, due Mar  6: todo",
		},
		{
			name: "sprint spans its days without a status",
			entry: plan.Entry{
				ID: "S1", Scope: plan.ScopeSprint, Name: "Sprint 1",
				StartTime: date(2026, time.January, 12), Duration: 14 * day,
				Status: plan.StatusDone,
			},
			want: "Sprint 1, Jan 12 to Jan 25",
		},
		{
			name: "task with owner and progress",
			entry: plan.Entry{
				ID: "T10", Scope: plan.ScopeTask, Name: "Venue scrapers", Owner: "Skylar",
				Status: plan.StatusDoing, Percent: 60,
			},
			want: "T10 Venue scrapers (Skylar): doing 60%",
		},
		{
			name: "task without owner",
			entry: plan.Entry{
				ID: "T11", Scope: plan.ScopeTask, Name: "Dedupe pass",
				Status: plan.StatusTodo,
			},
			want: "T11 Dedupe pass: todo",
		},
		{
			name: "doing at zero percent stays quiet",
			entry: plan.Entry{
				ID: "T12", Scope: plan.ScopeTask, Name: "Ranking heuristics",
				Status: plan.StatusDoing,
			},
			want: "T12 Ranking heuristics: doing",
		},
		{
			name: "zero width spaces are scrubbed",
			entry: plan.Entry{
				ID: "T13", Scope: plan.ScopeTask, Name: "Load​test",
				Status: plan.StatusTodo,
			},
			want: "T13 Loadtest: todo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, line(tt.entry))
		})
	}
}

func TestRenderTitle(t *testing.T) {
	title, err := renderTitle(date(2026, time.March, 2))
	require.NoError(t, err)
	assert.Equal(t, "Locate918 roadmap for Monday, 02 Mar 2026", title)
}

func TestRenderPosts(t *testing.T) {
	entries := plan.Entries{
		{
			ID: "T10", Scope: plan.ScopeTask, Name: "Venue scrapers", Owner: "Skylar",
			Status: plan.StatusDoing, Percent: 60, TagNames: []string{"task", "data"},
		},
		{
			ID: "M2", Scope: plan.ScopeMilestone, Name: "Demo day",
			StartTime: date(2026, time.March, 13), Status: plan.StatusTodo,
		},
	}

	content, err := renderPosts(date(2026, time.March, 2), entries)
	require.NoError(t, err)

	assert.Contains(t, content, "T10 Venue scrapers (Skylar): doing 60%")
	assert.Contains(t, content, "M2 Demo day, due Mar 13: todo")
	assert.True(t, strings.HasSuffix(content, "#march #locate918 #capstone"),
		"digest should close with the month and project tags: %q", content)
}

func TestSortedDays(t *testing.T) {
	groups := map[time.Time]plan.Entries{
		date(2026, time.March, 4): {},
		date(2026, time.March, 2): {},
		date(2026, time.March, 3): {},
	}

	days := sortedDays(groups)
	require.Len(t, days, 3)
	assert.True(t, days[0].Before(days[1]) && days[1].Before(days[2]))
	assert.Equal(t, date(2026, time.March, 2), days[0])
}

func TestSplitSlice(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, splitSlice([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2}}, splitSlice([]int{1, 2}, 5))
	assert.Equal(t, [][]int{{1}, {2}, {3}}, splitSlice([]int{1, 2, 3}, 0))
}

func TestCleaveSlice(t *testing.T) {
	fits := func(sl []int) bool { return len(sl) <= 2 }

	head, rest := cleaveSlice([]int{1, 2, 3, 4, 5}, fits)
	assert.Equal(t, []int{1, 2}, head)
	assert.Equal(t, []int{3, 4, 5}, rest)

	head, rest = cleaveSlice([]int{1, 2}, fits)
	assert.Equal(t, []int{1, 2}, head)
	assert.Nil(t, rest)

	// A single element that never fits still comes back, so the caller
	// can't loop forever.
	head, rest = cleaveSlice([]int{9}, func([]int) bool { return false })
	assert.Equal(t, []int{9}, head)
	assert.Nil(t, rest)
}

func TestUniqueValues(t *testing.T) {
	assert.Equal(t, []string{"task", "data"}, uniqueValues([]string{"task", "data", "task"}, stringsContain))
	assert.Empty(t, uniqueValues(nil, stringsContain))
}

func TestRemoveStrings(t *testing.T) {
	assert.Equal(t, "ab", removeStrings("a​b", badStrings...))
	assert.Equal(t, "plain", removeStrings("plain", badStrings...))
}

func TestRenderTagsText(t *testing.T) {
	out := renderTagsText(tags{"task", "task", "data"}, "#")

	parts := strings.Fields(out)
	require.Len(t, parts, 2, "duplicate labels should collapse")
	for _, p := range parts {
		assert.True(t, strings.HasPrefix(p, "#"), "tag %q should carry the prefix", p)
	}

	assert.Empty(t, renderTagsText(nil, "#"))
}

func TestInstanceName(t *testing.T) {
	tests := []struct {
		inst string
		want string
	}{
		{"https://mastodon.example/some/path", "mastodon.example"},
		{"https://social.example", "social.example"},
		{"https://social.example/", "social.example"},
		{"metalhead.club", "metalhead.club"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InstanceName(tt.inst), "InstanceName(%q)", tt.inst)
	}
}

func TestNewActivityPubTag(t *testing.T) {
	base := vocab.IRI("https://oni.example/~roadmap")

	tag := newActivityPubTag("Locate918", base)
	assert.Equal(t, nl("#locate918"), tag.Name)
	assert.Equal(t, vocab.ID("https://oni.example/~roadmap/locate918"), tag.ID)
	assert.True(t, tag.To.Contains(vocab.PublicNS))

	// The hash prefix on the label must not leak into the tag IRI.
	tag = newActivityPubTag("#capstone", base)
	assert.Equal(t, vocab.ID("https://oni.example/~roadmap/capstone"), tag.ID)
}

func TestAPTags(t *testing.T) {
	base := vocab.IRI("https://oni.example/~roadmap")
	entries := plan.Entries{
		{ID: "T10", TagNames: []string{"task", "data"}},
		{ID: "T11", TagNames: []string{"data"}},
	}

	got := apTags(entries, base)
	require.Len(t, got, 2)
	assert.Equal(t, "#task", roadmap.NameOf(got[0]))
	assert.Equal(t, "#data", roadmap.NameOf(got[1]))

	assert.Nil(t, apTags(nil, base))
}

func TestDefaultActivityPubTags(t *testing.T) {
	base := vocab.IRI("https://oni.example/~roadmap")

	got := defaultActivityPubTags(date(2026, time.March, 2), base)
	require.Len(t, got, 3)
	assert.Equal(t, "#march", roadmap.NameOf(got[0]))
	assert.Equal(t, "#locate918", roadmap.NameOf(got[1]))
	assert.Equal(t, "#capstone", roadmap.NameOf(got[2]))
}

func TestRenderTagHTML(t *testing.T) {
	tag := vocab.Object{
		ID:   "https://oni.example/~roadmap/capstone",
		Name: nl("#capstone"),
	}
	assert.Equal(t,
		template.HTML(`<a rel="tag" href="https://oni.example/~roadmap/capstone">#capstone</a>`),
		renderTagHTML(tag))

	mention := vocab.Object{
		Type: vocab.MentionType,
		ID:   "https://social.example/@ops",
		Name: nl("@ops"),
	}
	assert.Contains(t, string(renderTagHTML(mention)), `rel="mention"`)
}

func TestRenderHTMLObject(t *testing.T) {
	entries := plan.Entries{
		{
			ID: "M2", Scope: plan.ScopeMilestone, Name: "Demo day",
			StartTime: date(2026, time.March, 13), Status: plan.StatusTodo,
		},
	}
	base := vocab.IRI("https://oni.example/~roadmap")

	html, err := renderHTMLObject(date(2026, time.March, 2), entries, defaultActivityPubTags(date(2026, time.March, 2), base))
	require.NoError(t, err)

	assert.Contains(t, html, "<p>M2 Demo day, due Mar 13: todo </p>")
	assert.Contains(t, html, `<a rel="tag" href="https://oni.example/~roadmap/march">#march</a>`)
	assert.Contains(t, html, `<a rel="tag" href="https://oni.example/~roadmap/capstone">#capstone</a>`)
}

func TestCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ap := &APClient{
		ID:   vocab.IRI("https://oni.example/~roadmap"),
		Type: "oni",
		Conf: oauth2.Config{ClientID: "roadmap-bot", ClientSecret: "sw0rdf1sh"},
		Tok:  &oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"},
	}
	require.NoError(t, saveCredentials(ap, filepath.Join(dir, "oni.example")))

	mast := &madon.Client{
		Name:        "roadmap",
		ID:          "client-id",
		Secret:      "client-secret",
		APIBase:     "https://social.example/api/v1",
		InstanceURL: "https://social.example",
	}
	require.NoError(t, saveCredentials(mast, filepath.Join(dir, "social.example")))

	creds, err := LoadCredentials(dir)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	// Each stream must come back as the type it was saved as, not as the
	// other client with most fields empty.
	gotAP, ok := creds["oni.example"].(*APClient)
	require.True(t, ok, "oni.example should decode as an ActivityPub client, got %T", creds["oni.example"])
	assert.Equal(t, ap.ID, gotAP.ID)
	assert.Equal(t, "roadmap-bot", gotAP.Conf.ClientID)
	require.NotNil(t, gotAP.Tok)
	assert.Equal(t, "tok-123", gotAP.Tok.AccessToken)

	gotMast, ok := creds["social.example"].(*madon.Client)
	require.True(t, ok, "social.example should decode as a Mastodon client, got %T", creds["social.example"])
	assert.Equal(t, "https://social.example", gotMast.InstanceURL)
	assert.Equal(t, "client-secret", gotMast.Secret)
}

func TestLoadCredentialsEmptyDir(t *testing.T) {
	creds, err := LoadCredentials(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, creds)
}

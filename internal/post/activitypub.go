package post

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/gob"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~mariusor/lw"
	"github.com/McKael/madon"
	vocab "github.com/go-ap/activitypub"
	"github.com/go-ap/client"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/locate918/roadmap"
	"github.com/locate918/roadmap/plan"
)

const digestHTMLTpl = `{{- range $e := .Entries }}<p>{{ $e | line }} {{ renderTags $e.TagNames "#" }}</p>
{{ end -}}
<p>{{ range $t := .Tags }}{{ $t | renderTag }} {{ end }}</p>`

var contHTMLTemplate = template.Must(template.New("daily-digest-html").
	Funcs(template.FuncMap{
		"line":       line,
		"lower":      strings.ToLower,
		"renderTag":  renderTagHTML,
		"renderTags": renderTagsText,
	}).Parse(digestHTMLTpl))

var infFn client.LogFn = func(s string, i ...interface{}) {}
var errFn client.LogFn = func(s string, i ...interface{}) {}

func maxItems(max int) client.FilterFn {
	v := url.Values{}
	v.Add("maxItems", strconv.Itoa(max))
	return func() url.Values {
		return v
	}
}

func typeFilter(types ...string) client.FilterFn {
	v := url.Values{}
	for _, name := range types {
		v.Add("type", name)
	}
	return func() url.Values {
		return v
	}
}

func withTagObjects() url.Values {
	v := url.Values{}
	v.Add("object.type", "")
	return v
}

func newActivityPubTag(tag string, baseURL vocab.IRI) *vocab.Object {
	tag = "#" + roadmap.TagNormalize(tag)
	t := new(vocab.Object)
	t.Name = nl(tag)
	t.To.Append(vocab.PublicNS)
	t.ID = baseURL.AddPath(strings.TrimPrefix(tag, "#"))
	return t
}

func apTags(entries plan.Entries, baseURL vocab.IRI) vocab.ItemCollection {
	if len(entries) == 0 {
		return nil
	}
	names := make([]string, 0)
	for _, e := range entries {
		names = append(names, e.TagNames...)
	}

	tags := make(vocab.ItemCollection, 0)
	for _, tag := range names {
		if t := newActivityPubTag(tag, baseURL); !tags.Contains(t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func acceptFollows(actor *vocab.Actor, cl client.PubClient) error {
	inbox, err := cl.Inbox(context.Background(), actor, typeFilter("Follow"), maxItems(100))
	if err != nil {
		return err
	}
	followers, err := cl.Followers(context.Background(), actor)
	if err != nil {
		return err
	}
	followerIRIs := make(vocab.IRIs, 0)
	vocab.OnCollectionIntf(followers, func(col vocab.CollectionInterface) error {
		for _, fol := range col.Collection() {
			followerIRIs = append(followerIRIs, fol.GetLink())
		}
		return nil
	})

	toSend := make([]*vocab.Activity, 0)
	vocab.OnCollectionIntf(inbox, func(col vocab.CollectionInterface) error {
		for _, act := range col.Collection() {
			if act.GetType() != vocab.FollowType {
				continue
			}
			skip := false
			vocab.OnActivity(act, func(follow *vocab.Activity) error {
				skip = followerIRIs.Contains(follow.Actor.GetLink())
				if !skip {
					infFn("Accepting Follow request from: %s", follow.Actor.GetLink())
				}
				return nil
			})
			if skip {
				continue
			}

			accept := new(vocab.Activity)
			accept.Type = vocab.AcceptType
			accept.CC = append(accept.CC, vocab.PublicNS)
			accept.Actor = actor
			accept.InReplyTo = act.GetID()
			accept.Object = act.GetID()
			toSend = append(toSend, accept)
		}
		return nil
	})

	g, ctx := errgroup.WithContext(context.Background())
	for _, accept := range toSend {
		g.Go(func() error {
			if _, _, err := cl.ToOutbox(ctx, accept); err != nil {
				errFn("Failed accepting follow: %+s", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func defaultActivityPubTags(date time.Time, baseURL vocab.IRI) vocab.ItemCollection {
	return vocab.ItemCollection{
		newActivityPubTag(strings.ToLower(date.Month().String()), baseURL),
		newActivityPubTag("locate918", baseURL),
		newActivityPubTag("capstone", baseURL),
	}
}

type apContent struct {
	Date    time.Time
	Entries plan.Entries
	Tags    vocab.ItemCollection
}

func renderHTMLObject(d time.Time, entries plan.Entries, tags vocab.ItemCollection) (string, error) {
	model := apContent{Date: d, Entries: entries, Tags: tags}
	contBuff := bytes.NewBuffer(nil)
	if err := contHTMLTemplate.Execute(contBuff, model); err != nil {
		errFn("unable to render post %s", err)
		return "", err
	}
	return contBuff.String(), nil
}

func equalOrInCollection(toCheck, with vocab.Item) bool {
	if vocab.IsItemCollection(toCheck) {
		return false
	}
	if vocab.IsItemCollection(with) {
		inCollection := false
		vocab.OnItemCollection(with, func(col *vocab.ItemCollection) error {
			for _, it := range *col {
				if equalOrInCollection(toCheck, it) {
					inCollection = true
					break
				}
			}
			return nil
		})
		return inCollection
	}
	urlSame := with.GetLink().Equals(toCheck.GetLink(), true)
	nameSame := strings.EqualFold(roadmap.NameOf(with), roadmap.NameOf(toCheck))
	return urlSame && nameSame
}

func removeExistingTags(ctx context.Context, client client.PubGetter, actor *vocab.Actor, tags vocab.ItemCollection) (vocab.ItemCollection, error) {
	col, err := client.Outbox(ctx, actor, typeFilter(string(vocab.CreateType)), withTagObjects)
	if err != nil {
		return nil, err
	}

	tagsToCreate := make(vocab.ItemCollection, 0)
	for _, tag := range tags {
		needsCreating := true
		for _, it := range col.Collection() {
			var ob vocab.Item
			vocab.OnActivity(it, func(act *vocab.Activity) error {
				ob = act.Object
				return nil
			})
			if equalOrInCollection(tag, ob) {
				needsCreating = false
				break
			}
		}
		if needsCreating && !tagsToCreate.Contains(tag) {
			tagsToCreate = append(tagsToCreate, tag)
		}
	}
	return tagsToCreate, nil
}

func ToActivityPub(cl *APClient) PosterFn {
	logger := lw.Dev()

	tok := cl.Tok.AccessToken
	oauth := cl.Conf.Client(context.Background(), cl.Tok)
	ap := client.New(
		client.WithHTTPClient(oauth),
		client.WithLogger(logger),
	)

	errFn = logger.Errorf
	infFn = logger.Infof

	c, cancelFn := context.WithTimeout(context.Background(), time.Second)
	defer cancelFn()

	actor, err := ap.Actor(c, cl.ID)
	if err != nil {
		errFn("%s, falling back to just printing", err)
		return ToStdout
	}

	if err := acceptFollows(actor, ap); err != nil {
		errFn("failed to accept follows for actor: %s", err)
	}

	ctx := context.Background()

	return func(grouped map[time.Time]plan.Entries) error {
		activities := make([]vocab.Activity, 0)
		for _, gd := range sortedDays(grouped) {
			group := grouped[gd]
			ob := new(vocab.Object)
			ob.Type = vocab.NoteType

			tags := append(defaultActivityPubTags(gd, actor.ID), apTags(group, actor.ID)...)
			toCreateTags, err := removeExistingTags(ctx, ap, actor, tags)
			if err != nil {
				infFn("Error when loading tags from server: %s", err)
			}
			if len(toCreateTags) > 0 {
				activities = append(activities, roadmap.WrapObjectInCreate(*actor, toCreateTags))
			}

			content, err := renderHTMLObject(gd, group, tags)
			if err != nil {
				errFn("Unable to render HTML object: %s", err)
				continue
			}
			ob.Content = nl(content)
			ob.Tag = tags

			title, err := renderTitle(gd)
			if err == nil {
				ob.Name = nl(title)
			}
			if source, err := renderPosts(gd, group); err == nil {
				ob.Source = vocab.Source{
					MediaType: "text/markdown",
					Content:   nl(source),
				}
			}

			ob.To = vocab.ItemCollection{vocab.PublicNS}
			ob.CC = vocab.ItemCollection{vocab.Followers.Of(actor)}

			activities = append(activities, roadmap.WrapObjectInCreate(*actor, ob))
		}
		(OperationsBatch{AP: ap, Ops: activities}).Send()

		if tr, ok := oauth.Transport.(*oauth2.Transport); ok {
			newTok, err := tr.Source.Token()
			if err != nil {
				errFn("Unable to refresh OAuth2 token: %s", err)
				return nil
			}
			cl.Tok = newTok
			if newTok.AccessToken == tok {
				return nil
			}
			if err := saveCredentials(cl, filepath.Join(dataPath(), InstanceName(cl.ID.String()))); err != nil {
				errFn("Unable to save new credentials for %s: %s", cl.ID, err)
			} else {
				infFn("Refreshed OAuth2 credentials %s", cl.ID)
			}
		}
		return nil
	}
}

type APClient struct {
	ID    vocab.IRI
	Types []string
	Type  string
	Conf  oauth2.Config
	Tok   *oauth2.Token
}

type OperationsBatch struct {
	AP  client.PubSubmitter
	Ops []vocab.Activity
}

func (b OperationsBatch) Send() {
	for _, act := range b.Ops {
		_, created, err := b.AP.ToOutbox(context.Background(), act)
		if err != nil {
			errFn("%+s", err)
		} else {
			infFn("Created object: %s", created.GetLink())
		}
	}
}

func GetHTTPClient() *http.Client {
	cl := http.DefaultClient

	if cl.Transport == nil {
		cl.Transport = &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 20,
			DialContext: (&net.Dialer{
				// This is the TCP connect timeout in this instance.
				Timeout: 2500 * time.Millisecond,
			}).DialContext,
			TLSHandshakeTimeout: 2500 * time.Millisecond,
		}
	}
	if tr, ok := cl.Transport.(*http.Transport); ok {
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = new(tls.Config)
		}
		tr.TLSClientConfig.InsecureSkipVerify = true
	}

	if tr, ok := cl.Transport.(*oauth2.Transport); ok {
		if tr, ok := tr.Base.(*http.Transport); ok {
			if tr.TLSClientConfig == nil {
				tr.TLSClientConfig = new(tls.Config)
			}
			tr.TLSClientConfig.InsecureSkipVerify = true
		}
	}
	return cl
}

// dataPath matches the directory the cmd layer stores credentials under.
func dataPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "roadmap")
}

func saveCredentials(cl any, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to open file %w", err)
	}
	defer f.Close()

	d := gob.NewEncoder(f)
	return d.Encode(cl)
}

func LoadCredentials(path string) (map[string]any, error) {
	creds := make(map[string]any)

	err := filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// A gob stream for one client type can decode into the other with
		// most fields left empty, so check the identifying fields too.
		for _, cl := range []any{new(APClient), new(madon.Client)} {
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(cl); err != nil {
				continue
			}
			switch c := cl.(type) {
			case *APClient:
				if c.ID == "" || c.Conf.ClientID == "" {
					continue
				}
			case *madon.Client:
				if c.InstanceURL == "" || c.APIBase == "" {
					continue
				}
			}
			creds[filepath.Base(path)] = cl
			break
		}
		return nil
	})

	return creds, err
}

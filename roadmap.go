package roadmap

import (
	"embed"
	"strings"
	"time"

	vocab "github.com/go-ap/activitypub"
)

// AccountDetails holds the announcement account's display name, description
// and images, pushed to the remote instance by auth --update-account.
//
//go:embed static
var AccountDetails embed.FS

func SetIDOf(it vocab.Item, id vocab.ID) {
	if vocab.LinkTypes.Contains(it.GetType()) {
		vocab.OnLink(it, func(lnk *vocab.Link) error {
			lnk.ID = id
			return nil
		})
	} else {
		vocab.OnObject(it, func(ob *vocab.Object) error {
			ob.ID = id
			return nil
		})
	}
}

func NameOf(it vocab.Item) string {
	var name string
	if vocab.LinkTypes.Contains(it.GetType()) {
		vocab.OnLink(it, func(lnk *vocab.Link) error {
			name = lnk.Name.First().String()
			return nil
		})
	} else {
		vocab.OnObject(it, func(ob *vocab.Object) error {
			name = ob.Name.First().String()
			return nil
		})
	}
	return name
}

var NL = vocab.DefaultNaturalLanguageValue

var toRemoveStrings = []string{"-", " ", "&", "'", "#", "."}

// TagNormalize turns a label into the lowercase hashtag form used on the
// Fediverse.
func TagNormalize(t string) string {
	t = strings.TrimPrefix(t, "#")
	t = strings.ToLower(t)
	for _, r := range toRemoveStrings {
		t = strings.ReplaceAll(t, r, "")
	}
	return t
}

func WrapObjectInCreate(actor vocab.Actor, p vocab.Item) vocab.Activity {
	now := time.Now().UTC()
	return vocab.Activity{
		Type:         vocab.CreateType,
		Published:    now,
		Updated:      now,
		AttributedTo: actor.GetLink(),
		Actor:        actor.GetLink(),
		Object:       p,
	}
}

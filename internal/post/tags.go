package post

import (
	"fmt"
	"html/template"
	"strings"

	"git.sr.ht/~mariusor/tagextractor"
	vocab "github.com/go-ap/activitypub"
)

type tags []string

func renderTagHTML(t vocab.Item) template.HTML {
	render := ""

	vocab.OnObject(t, func(ob *vocab.Object) error {
		typ := "tag"
		if ob.Type == vocab.MentionType {
			typ = "mention"
		}
		render = fmt.Sprintf(`<a rel="%s" href="%s">%s</a>`, typ, ob.ID, ob.Name.First().String())
		return nil
	})
	return template.HTML(render)
}

var nl = vocab.DefaultNaturalLanguageValue

func renderTagsText(t tags, tagPref string) string {
	rendered := make([]string, len(t))
	for i, g := range t {
		rendered[i] = tagPref + tagextractor.TagNormalize(g)
	}

	return strings.Join(uniqueValues(rendered, stringsContain), " ")
}

package automation

import (
	"strings"

	"github.com/blacktop/reelpost/internal/quotes"
	"github.com/blacktop/reelpost/internal/story"
)

// Caption renders the Instagram caption as headline, call to action and
// hashtags separated by blank lines.
func Caption(q quotes.Quote, script story.Script, extraTags []string) string {
	return strings.Join([]string{
		Headline(q),
		strings.TrimSpace(script.CallToAction),
		strings.Join(Hashtags(extraTags), " "),
	}, "\n\n")
}

// Headline is the quoted text followed by its source.
func Headline(q quotes.Quote) string {
	return `"` + q.Text + `" — ` + q.Source
}

// Hashtags returns extra followed by the default tags, each prefixed with #
// and without duplicates. Blank entries are dropped.
func Hashtags(extra []string) []string {
	all := append(append([]string(nil), extra...), quotes.Hashtags...)
	out := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, tag := range all {
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == "#" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

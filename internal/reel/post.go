package reel

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "…"

// Compose renders the post text for a network that accepts at most limit
// characters. linkCost is how many characters the network charges for the
// link (Twitter wraps every URL to a fixed length); pass 0 to count the link
// as written. The message is trimmed on a word boundary to make room.
func (p Post) Compose(limit, linkCost int) string {
	message := strings.TrimSpace(p.Message)
	link := strings.TrimSpace(p.Link)
	if link == "" {
		return truncate(message, limit)
	}

	cost := linkCost
	if cost <= 0 {
		cost = utf8.RuneCountInString(link)
	}
	const sep = "\n\n"
	room := limit - cost - utf8.RuneCountInString(sep)
	if room <= 0 {
		return link
	}
	if message == "" {
		return link
	}
	return truncate(message, room) + sep + link
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit-1])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n\t.,;:") + ellipsis
}

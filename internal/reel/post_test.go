package reel

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeFits(t *testing.T) {
	p := Post{Message: "Lift yourself by yourself", Link: "https://instagram.com/reel/abc/"}
	assert.Equal(t, "Lift yourself by yourself\n\nhttps://instagram.com/reel/abc/", p.Compose(500, 0))
}

func TestComposeTruncatesOnWordBoundary(t *testing.T) {
	p := Post{Message: "one two three four five six", Link: "https://x.co/r"}
	got := p.Compose(30, 0)

	assert.Equal(t, "one two…\n\nhttps://x.co/r", got)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 30)
}

func TestComposeLinkCost(t *testing.T) {
	link := "https://www.instagram.com/reel/" + strings.Repeat("a", 40)
	p := Post{Message: strings.Repeat("om ", 200), Link: link}
	got := p.Compose(280, 23)

	body := strings.TrimSuffix(got, "\n\n"+link)
	require.NotEqual(t, got, body)
	assert.LessOrEqual(t, utf8.RuneCountInString(body), 280-23-2)
	assert.True(t, strings.HasSuffix(body, ellipsis))
}

func TestComposeWithoutLink(t *testing.T) {
	assert.Equal(t, "short", Post{Message: "  short  "}.Compose(10, 0))
	assert.Equal(t, "a longer…", Post{Message: "a longer message"}.Compose(10, 0))
}

func TestComposeNoRoomKeepsLink(t *testing.T) {
	p := Post{Message: "hello", Link: "https://example.com/very/long"}
	assert.Equal(t, p.Link, p.Compose(10, 0))
	assert.Equal(t, p.Link, Post{Link: p.Link}.Compose(100, 0))
}

func TestPublishOutcomeJSON(t *testing.T) {
	cases := map[string]struct {
		outcome PublishOutcome
		want    string
	}{
		"skipped":      {Skipped("Instagram automation disabled."), `{"status":"skipped","reason":"Instagram automation disabled."}`},
		"published":    {Published("1789", "https://www.instagram.com/reel/C1/"), `{"status":"success","mediaId":"1789","permalink":"https://www.instagram.com/reel/C1/"}`},
		"no permalink": {Published("1789", ""), `{"status":"success","mediaId":"1789","permalink":null}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := json.Marshal(tc.outcome)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestCredentialsMissing(t *testing.T) {
	assert.True(t, Credentials{}.Missing())
	assert.True(t, Credentials{AccountID: "1", AccessToken: "  "}.Missing())
	assert.False(t, Credentials{AccountID: "1", AccessToken: "t"}.Missing())
}

func TestMissingEnvError(t *testing.T) {
	err := MissingEnvError{Provider: "mastodon", Variables: []string{"A", "B"}}
	assert.Equal(t, "mastodon credentials not configured (missing A, B)", err.Error())
	assert.Equal(t, "bluesky credentials not configured", MissingEnvError{Provider: "bluesky"}.Error())
}

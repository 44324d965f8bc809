package quotes

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryIsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, q := range All() {
		assert.NotEmpty(t, q.Text, q.ID)
		assert.True(t, strings.HasPrefix(q.Source, "Bhagavad Gita"), q.ID)
		assert.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}
	assert.Len(t, seen, 13)
}

func TestByID(t *testing.T) {
	q, err := ByID(" GITA-2-47 ")
	require.NoError(t, err)
	assert.Equal(t, "Bhagavad Gita 2.47", q.Source)

	_, err = ByID("gita-99-1")
	assert.ErrorContains(t, err, "unknown quote")
}

func TestRandomIsDeterministicWithSeededSource(t *testing.T) {
	a := Random(rand.New(rand.NewPCG(1, 2)))
	b := Random(rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}

func TestAllReturnsCopy(t *testing.T) {
	qs := All()
	qs[0].Text = "changed"
	assert.NotEqual(t, "changed", All()[0].Text)
}

func TestHashtagsArePrefixed(t *testing.T) {
	for _, tag := range Hashtags {
		assert.True(t, strings.HasPrefix(tag, "#"), tag)
	}
}

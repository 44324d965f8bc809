package fsutil

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempID(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^log-[0-9a-f]{12}$`), TempID("log"))
	assert.NotEqual(t, TempID("x"), TempID("x"))
}

func TestTempPath(t *testing.T) {
	p := TempPath("voice", ".mp3")
	assert.Equal(t, os.TempDir(), filepath.Dir(p))
	assert.Equal(t, ".mp3", filepath.Ext(p))
	assert.True(t, IsTemp(p))
}

func TestIsTemp(t *testing.T) {
	assert.False(t, IsTemp(""))
	assert.False(t, IsTemp(os.TempDir()))
	assert.False(t, IsTemp("public/audio/ambience.mp3"))
	assert.False(t, IsTemp(filepath.Join(os.TempDir(), "..", "etc", "passwd")))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "gita-2-47", Slug("Gita 2.47"))
	assert.Equal(t, "pause-and-breathe", Slug("  Pause & Breathe! "))
}

func TestRemoveTemp(t *testing.T) {
	tmp := TempPath("subs", "ass")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0o600))

	RemoveTemp(tmp, "", "public/audio/ambience.mp3")

	_, err := os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

package logviewer

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotIDFromToken(t *testing.T) {
	t.Parallel()

	segment := base64.RawStdEncoding.EncodeToString([]byte("123456789012345678"))

	id, err := BotIDFromToken(segment + ".Gabcde.signature")
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789012345678), id)

	padded := base64.StdEncoding.EncodeToString([]byte("1234567"))
	id, err = BotIDFromToken(padded + ".x.y")
	require.NoError(t, err)
	assert.Equal(t, uint64(1234567), id)

	for _, token := range []string{"", ".x.y", "!!!.x.y", base64.RawStdEncoding.EncodeToString([]byte("abc")) + ".x"} {
		_, err := BotIDFromToken(token)
		require.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestParseWhitelist(t *testing.T) {
	t.Parallel()

	w, err := ParseWhitelist([]string{"100", " 200 "})
	require.NoError(t, err)
	assert.True(t, w.Allows(100, nil))
	assert.True(t, w.Allows(1, []uint64{3, 200}))
	assert.False(t, w.Allows(1, []uint64{3}))
	assert.False(t, w.AllowsEveryone())

	w, err = ParseWhitelist([]string{"Everyone"})
	require.NoError(t, err)
	assert.True(t, w.Allows(1, nil))

	_, err = ParseWhitelist([]string{"abc"})
	require.ErrorIs(t, err, ErrInvalidWhitelistEntry)
}

func TestIsLocalPath(t *testing.T) {
	t.Parallel()

	assert.True(t, isLocalPath("/logs/abc"))
	assert.False(t, isLocalPath("//evil.example"))
	assert.False(t, isLocalPath("https://evil.example"))
	assert.False(t, isLocalPath(""))
}

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/logs", normalizePrefix(""))
	assert.Equal(t, "/logs", normalizePrefix("logs/"))
	assert.Equal(t, "/", normalizePrefix("/"))
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	t.Parallel()

	r, err := newRenderer()
	require.NoError(t, err)

	out := string(r.renderMarkdown("hi <script>alert(1)</script> ~~old~~"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<del>old</del>")
}

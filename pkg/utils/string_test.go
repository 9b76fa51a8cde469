package utils_test

import (
	"testing"
	"time"

	"github.com/modmail-dev/modmail/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressAllWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello world", utils.CompressAllWhitespace("  hello\n\n  world \t"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 5, "abcd…"},
		{"runes", "ééééé", 3, "éé…"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utils.Truncate(tt.input, tt.limit))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"1d12h", 36 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{" 1D 2H ", 26 * time.Hour},
	}

	for _, tt := range tests {
		got, err := utils.ParseDuration(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	for _, input := range []string{"", "10", "d", "5y", "0m"} {
		_, err := utils.ParseDuration(input)
		require.ErrorIs(t, err, utils.ErrInvalidDuration, input)
	}
}

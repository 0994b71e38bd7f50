package proxy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateWithTrailer_ZeroCapYieldsEmptyPrefixAndTrailer(t *testing.T) {
	text := strings.Repeat("X", 10)
	got := truncateWithTrailer(text, 0)
	require.Equal(t, "\n[TRUNCATED: original size was 10 bytes, stored first 0 bytes]", got)
}

func TestTruncateWithTrailer_ZeroCapOnEmptyTextStaysEmpty(t *testing.T) {
	require.Equal(t, "", truncateWithTrailer("", 0))
}

func TestTruncateWithTrailer_NegativeCapIsUnlimited(t *testing.T) {
	text := strings.Repeat("X", 10)
	require.Equal(t, text, truncateWithTrailer(text, -1))
}

func TestTruncateWithTrailer_UnderCapReturnsUnchanged(t *testing.T) {
	text := "hello"
	require.Equal(t, text, truncateWithTrailer(text, 50))
}

func TestTruncateWithTrailer_OverCapAppendsExactTrailer(t *testing.T) {
	text := strings.Repeat("X", 200)
	got := truncateWithTrailer(text, 50)
	require.Equal(t, strings.Repeat("X", 50)+"\n[TRUNCATED: original size was 200 bytes, stored first 50 bytes]", got)
}

func TestTruncateWithTrailer_RuneBoundarySafe(t *testing.T) {
	// "é" is 2 bytes (0xC3 0xA9); a cap landing mid-rune must back off to
	// the previous rune start rather than splitting it.
	text := "a" + strings.Repeat("é", 5)
	got := truncateWithTrailer(text, 2)
	require.True(t, strings.HasPrefix(got, "a\n[TRUNCATED"))
}

package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextSplitsOnParagraphs(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\n\nthird paragraph"
	chunks := ChunkText(text, 100, 20)
	require.Equal(t, []string{"first paragraph", "second paragraph", "third paragraph"}, chunks)
}

func TestChunkTextSkipsBlankParagraphs(t *testing.T) {
	chunks := ChunkText("a\n\n   \n\nb", 100, 20)
	require.Equal(t, []string{"a", "b"}, chunks)
}

func TestChunkTextWindowsLongParagraphs(t *testing.T) {
	long := strings.Repeat("x", 250)
	chunks := ChunkText(long, 100, 20)

	require.Len(t, chunks, 3)
	for i, c := range chunks[:len(chunks)-1] {
		require.Len(t, c, 100, "chunk %d", i)
	}
	// Consecutive windows advance by size minus overlap, so the tail chunk
	// holds the remainder.
	require.Len(t, chunks[len(chunks)-1], 250-2*80)
}

func TestChunkTextClampsOversizedOverlap(t *testing.T) {
	long := strings.Repeat("x", 50)
	chunks := ChunkText(long, 20, 20)
	require.NotEmpty(t, chunks, "overlap >= size must not loop forever")
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 20)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	require.Empty(t, ChunkText("", 100, 20))
	require.Empty(t, ChunkText("some text", 0, 0))
}

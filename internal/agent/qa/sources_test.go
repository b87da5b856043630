package qa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/internal/agent/model"
)

func passagesNamed(names ...string) []model.Passage {
	out := make([]model.Passage, len(names))
	for i, n := range names {
		out[i] = model.Passage{FileName: n, Content: "content"}
	}
	return out
}

func TestSourceFiles(t *testing.T) {
	testCases := []struct {
		name     string
		docs     []model.Passage
		expected []string
	}{
		{
			name:     "deduplicates preserving first-seen order",
			docs:     passagesNamed("a.md", "b.md", "a.md"),
			expected: []string{"a", "b"},
		},
		{
			name:     "strips extensions and paths",
			docs:     passagesNamed("docs/setup-guide.pdf", "notes.md"),
			expected: []string{"setup-guide", "notes"},
		},
		{
			name:     "empty input",
			docs:     nil,
			expected: nil,
		},
		{
			name:     "blank file names skipped",
			docs:     passagesNamed("", "ref.md"),
			expected: []string{"ref"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, SourceFiles(tc.docs))
		})
	}
}

func TestFormatSources(t *testing.T) {
	require.Equal(t, "Sources:\na\nb", FormatSources(passagesNamed("a.md", "b.md", "a.md")))

	// Empty passage list omits the section entirely, not an empty header.
	require.Equal(t, "", FormatSources(nil))
}

func TestFormatSourceList(t *testing.T) {
	require.Equal(t, "Sources:\na\nb", FormatSourceList([]string{"a", "b"}))
	require.Equal(t, "", FormatSourceList(nil))
}

func TestStripSources(t *testing.T) {
	withSources := "X is Y.\n\nSources:\nguide"
	require.Equal(t, "X is Y.", StripSources(withSources))

	plain := "X is Y."
	require.Equal(t, plain, StripSources(plain))
}

package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("ABCD", "Total assets 1,000", "N/A")

	assert.True(t, strings.HasPrefix(prompt, "Analyze the following document thoroughly for ABCD"))
	for i := 1; i <= 10; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("\n%d. ", i))
	}
	assert.Contains(t, prompt, "10. What is the ratio of total assets to market capitalization")
	assert.Contains(t, prompt, "previous close price of $N/A")
	assert.Contains(t, prompt, "Document content:\nTotal assets 1,000")
	assert.Contains(t, prompt, "Do not include question numbers or prefixes")

	industry := strings.Index(prompt, "In what industry")
	split := strings.Index(prompt, "reverse split")
	assert.Less(t, industry, split)
}

func TestBuildPromptTruncatesDocument(t *testing.T) {
	text := strings.Repeat("§", MaxPromptDocumentChars) + "TAIL"
	prompt := BuildPrompt("ABCD", text, "1")

	assert.NotContains(t, prompt, "TAIL")
	assert.Equal(t, MaxPromptDocumentChars, strings.Count(prompt, "§"))
}

func TestFormatResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain text",
			raw:  "Here is the analysis for ABCD: mining.",
			want: "Here is the analysis for ABCD: mining.",
		},
		{
			name: "escaped paragraphs are split and trimmed",
			raw:  `Here is the analysis for ABCD:\n\n  Mining company.  \n\nNo notes.`,
			want: "Here is the analysis for ABCD:\n\nMining company.\n\nNo notes.",
		},
		{
			name: "escaped single newline",
			raw:  `line one\nline two`,
			want: "line one\nline two",
		},
		{
			name: "text block representation is unwrapped",
			raw:  `[TextBlock(text='Here is the analysis for ABCD:\n\nShell company.', type='text')]`,
			want: "Here is the analysis for ABCD:\n\nShell company.",
		},
		{
			name: "surrounding whitespace is trimmed",
			raw:  "  \n answer \n ",
			want: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResponse(tt.raw))
		})
	}
}

func TestChunk(t *testing.T) {
	t.Run("8500 characters become three chunks", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; sb.Len() < 8500; i++ {
			fmt.Fprintf(&sb, "%d,", i)
		}
		input := sb.String()[:8500]

		chunks := Chunk(input, MaxChunkLength)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 4000)
		assert.Len(t, chunks[1], 4000)
		assert.Len(t, chunks[2], 500)
		assert.Equal(t, input[4000:8000], chunks[1])
		assert.Equal(t, input, strings.Join(chunks, ""))
	})

	t.Run("multibyte text splits on rune boundaries", func(t *testing.T) {
		input := strings.Repeat("é", 3) + "ü"
		chunks := Chunk(input, 2)
		assert.Equal(t, []string{"éé", "éü"}, chunks)
		assert.Equal(t, input, strings.Join(chunks, ""))
	})

	t.Run("short text is one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"short"}, Chunk("short", MaxChunkLength))
	})

	t.Run("exact multiple has no empty tail", func(t *testing.T) {
		assert.Len(t, Chunk(strings.Repeat("a", 8000), MaxChunkLength), 2)
	})

	t.Run("splits on characters not bytes", func(t *testing.T) {
		chunks := Chunk(strings.Repeat("é", 5), 2)
		assert.Equal(t, []string{"éé", "éé", "é"}, chunks)
	})

	t.Run("empty text has no chunks", func(t *testing.T) {
		assert.Empty(t, Chunk("", MaxChunkLength))
	})
}

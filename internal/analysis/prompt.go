package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxPromptDocumentChars is how much filing text is sent to the model
	MaxPromptDocumentChars = 100000

	// MaxChunkLength is the largest message delivered to a sink
	MaxChunkLength = 4000

	paragraphMarker = "<PARAGRAPH>"
)

var textBlockPattern = regexp.MustCompile(`(?s)\[TextBlock\(text='(.*?)', type='text'\)\]`)

func questions(previousClose string) []string {
	return []string{
		"In what industry is it? (Block chain, real estate, mining, etc..)",
		"Is it a shell company? If yes, what are the plans for this shell?",
		"What is the amount of the convertible notes the company has? (in $)",
		"When are the convertible notes due? Please elaborate on each convertible note mentioned in the document, including its due date",
		"Have there been any changes to the share structure between the quarters, such as share dilution or a decrease in the number of shares?",
		"Did they settle them (the convertible notes) or do they have plans to settle or do something with it?",
		"Are there any future plans for the business?",
		"Are there any upcoming material events disclosed or hinted at in the document, such as potential acquisitions, mergers, or significant changes in the share structure?",
		"Are there any plans for reverse split in the future?",
		fmt.Sprintf("What is the ratio of total assets to market capitalization (total market cap) for the company, based on the information provided in the document? Use the previous close price of $%s to calculate the market cap.", previousClose),
	}
}

// BuildPrompt assembles the analysis prompt for one filing
func BuildPrompt(ticker, text, previousClose string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following document thoroughly for %s, including any tables or structured data. Then answer these questions:\n\n", ticker)
	for i, q := range questions(previousClose) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}

	sb.WriteString("\nDocument content:\n")
	sb.WriteString(truncateRunes(text, MaxPromptDocumentChars))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Start your reply with \"Here is the analysis for %s:\" ", ticker)
	sb.WriteString("Provide your answers in a clear, concise manner but not as you are answering a question but as if you are stating a fact. ")
	sb.WriteString("Do not include question numbers or prefixes in your responses.\n")

	return sb.String()
}

// FormatResponse unwraps a TextBlock representation if present, turns escaped
// newlines into real ones and trims every paragraph
func FormatResponse(raw string) string {
	text := raw
	if m := textBlockPattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	text = strings.ReplaceAll(text, `\n\n`, "\n\n"+paragraphMarker+"\n\n")
	text = strings.ReplaceAll(text, `\n`, "\n")

	paragraphs := strings.Split(text, paragraphMarker)
	for i, p := range paragraphs {
		paragraphs[i] = strings.TrimSpace(p)
	}
	return strings.Join(paragraphs, "\n\n")
}

// Chunk splits text into consecutive pieces of at most size characters
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = MaxChunkLength
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

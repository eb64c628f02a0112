package chunker

import (
	"strings"
	"unicode"
)

// PassageChunker splits extracted document text into answerable passages:
// every non-blank line is a passage, and lines holding several sentences are
// split further, then regrouped into windows of SentencesPerChunk with overlap.
type PassageChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

// NewPassageChunker creates a chunker; non-positive sizes fall back to one sentence per passage.
func NewPassageChunker(sentencesPerChunk, overlapSentences int) *PassageChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 1
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &PassageChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Chunk returns the passages of text in document order.
func (c *PassageChunker) Chunk(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, c.group(Sentences(line))...)
	}
	return out
}

func (c *PassageChunker) group(sentences []string) []string {
	if len(sentences) <= c.sentencesPerChunk {
		return []string{strings.Join(sentences, " ")}
	}
	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

// Sentences splits text at sentence-ending punctuation followed by whitespace
// or end of text, so decimals and part numbers stay intact.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if !isSentenceEnd(r) {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}

package extractive

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"smartpt/internal/chunker"
)

// ErrNoSupportingPassage is returned when no passage shares a term with the question.
var ErrNoSupportingPassage = errors.New("no passage in the context matches the question")

// Answerer answers by quoting the context passages that best match the question.
// Passages are ranked by shared question terms weighted by how rare each term is
// across the context, normalized by passage length.
type Answerer struct {
	maxPassages  int
	chunker      *chunker.PassageChunker
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewAnswerer creates an extractive answerer returning at most maxPassages passages.
func NewAnswerer(maxPassages int) *Answerer {
	if maxPassages <= 0 {
		maxPassages = 3
	}
	return &Answerer{
		maxPassages:  maxPassages,
		chunker:      chunker.NewPassageChunker(1, 0),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this answerer implementation.
func (a *Answerer) Name() string { return "extractive" }

// Answer returns the best matching passages in their original order, one per line.
func (a *Answerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var passages []string
	for _, p := range a.chunker.Chunk(contextText) {
		if strings.HasPrefix(p, "[Source:") {
			continue
		}
		passages = append(passages, p)
	}
	query := a.tokenSet(question)
	if len(passages) == 0 || len(query) == 0 {
		return "", ErrNoSupportingPassage
	}

	// Document frequency of each question term across passages
	tokens := make([]map[string]struct{}, len(passages))
	df := map[string]int{}
	for i, p := range passages {
		tokens[i] = a.tokenSet(p)
		for t := range query {
			if _, ok := tokens[i][t]; ok {
				df[t]++
			}
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	n := float64(len(passages))
	var scores []pair
	for i := range passages {
		score := 0.0
		for t := range query {
			if _, ok := tokens[i][t]; ok {
				score += math.Log(1 + n/float64(df[t]))
			}
		}
		if score == 0 {
			continue
		}
		// Normalize by passage length to avoid bias
		if l := float64(len(tokens[i])); l > 0 {
			score /= math.Sqrt(l)
		}
		scores = append(scores, pair{i, score})
	}
	if len(scores) == 0 {
		return "", ErrNoSupportingPassage
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	limit := a.maxPassages
	if limit > len(scores) {
		limit = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, limit)
	for i := 0; i < limit; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	if header, ok := tableHeader(passages, selected); ok {
		selected = append([]int{header}, selected...)
	}
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, passages[idx])
	}
	return strings.Join(out, "\n"), nil
}

// tableHeader reports the first passage as a header when the selection consists
// of rows of the same comma-separated table and the header is not yet selected.
func tableHeader(passages []string, selected []int) (int, bool) {
	if len(selected) == 0 || selected[0] == 0 {
		return 0, false
	}
	fields := strings.Count(passages[0], ",")
	if fields == 0 {
		return 0, false
	}
	for _, idx := range selected {
		if strings.Count(passages[idx], ",") != fields {
			return 0, false
		}
	}
	return 0, true
}

func (a *Answerer) tokenSet(text string) map[string]struct{} {
	raw := a.tokenPattern.FindAllString(strings.ToLower(text), -1)
	m := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		if _, isStop := a.stopwords[t]; isStop {
			continue
		}
		m[t] = struct{}{}
	}
	return m
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "many", "much", "do", "does", "we", "have", "has", "there",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

package capability

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"inferd/pkg/types"
)

// nopCloser is embedded by heuristic invokers that hold no resources.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// lexiconSentiment classifies text by counting hits against positive and
// negative word sets.
type lexiconSentiment struct {
	nopCloser
	positive map[string]struct{}
	negative map[string]struct{}
}

func newLexiconSentiment(positive, negative []string) *lexiconSentiment {
	s := &lexiconSentiment{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		s.positive[w] = struct{}{}
	}
	for _, w := range negative {
		s.negative[w] = struct{}{}
	}
	return s
}

func (s *lexiconSentiment) ClassifyText(_ context.Context, text string) (types.Classification, error) {
	var pos, neg int
	words := tokenize(text)
	for _, w := range words {
		if _, ok := s.positive[w]; ok {
			pos++
		}
		if _, ok := s.negative[w]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return types.Classification{Label: "NEUTRAL", Score: 0.5}, nil
	}
	score := 0.5 + 0.5*float64(abs(pos-neg))/float64(total)
	if pos > neg {
		return types.Classification{Label: "POSITIVE", Score: score}, nil
	}
	if neg > pos {
		return types.Classification{Label: "NEGATIVE", Score: score}, nil
	}
	return types.Classification{Label: "NEUTRAL", Score: 0.5}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// lexiconToxicity flags text containing words from a blocklist. Score grows
// with the fraction of flagged tokens.
type lexiconToxicity struct {
	nopCloser
	blocked map[string]struct{}
}

func newLexiconToxicity(words []string) *lexiconToxicity {
	t := &lexiconToxicity{blocked: make(map[string]struct{}, len(words))}
	for _, w := range words {
		t.blocked[w] = struct{}{}
	}
	return t
}

func (t *lexiconToxicity) ClassifyText(_ context.Context, text string) (types.Classification, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return types.Classification{Label: "NON_TOXIC", Score: 0.99}, nil
	}
	hits := 0
	for _, w := range words {
		if _, ok := t.blocked[w]; ok {
			hits++
		}
	}
	if hits == 0 {
		return types.Classification{Label: "NON_TOXIC", Score: 0.99}, nil
	}
	score := math.Min(0.99, 0.6+0.4*float64(hits)/float64(len(words)))
	return types.Classification{Label: "TOXIC", Score: score}, nil
}

// keywordZeroShot scores candidate labels by token overlap with the text,
// normalized so the scores sum to 1, mirroring an NLI zero-shot pipeline's
// output shape.
type keywordZeroShot struct {
	nopCloser
}

func (keywordZeroShot) ClassifyLabels(_ context.Context, text string, labels []string) ([]types.Classification, error) {
	words := make(map[string]struct{})
	for _, w := range tokenize(text) {
		words[w] = struct{}{}
	}
	raw := make([]float64, len(labels))
	var sum float64
	for i, label := range labels {
		score := 0.1 // prior so every candidate gets a nonzero score
		for _, lw := range tokenize(label) {
			if _, ok := words[lw]; ok {
				score += 1
				continue
			}
			// crude stem match: "educational" vs "education"
			for w := range words {
				if len(lw) >= 5 && len(w) >= 5 && strings.HasPrefix(w, lw[:5]) {
					score += 0.5
					break
				}
			}
		}
		raw[i] = score
		sum += score
	}
	out := make([]types.Classification, len(labels))
	for i, label := range labels {
		out[i] = types.Classification{Label: label, Score: raw[i] / sum}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// embedDim is the output dimensionality of the hashing embedder, matching
// the MiniLM vector size the rest of the system expects.
const embedDim = 384

// hashEmbedder maps tokens into a fixed vector by feature hashing and
// L2-normalizes the result. Deterministic, no model artifact needed.
type hashEmbedder struct {
	nopCloser
}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embedDim)
	for _, w := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(w))
		v := h.Sum64()
		idx := int(v % embedDim)
		if (v>>63)&1 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// frequencySummarizer extracts the highest-scoring sentences by word
// frequency, preserving original order.
type frequencySummarizer struct {
	nopCloser
	maxSentences int
}

func (s frequencySummarizer) Summarize(_ context.Context, text string) (string, error) {
	sentences := splitSentences(text)
	max := s.maxSentences
	if max <= 0 {
		max = 3
	}
	if len(sentences) <= max {
		return strings.TrimSpace(text), nil
	}
	freq := make(map[string]int)
	for _, w := range tokenize(text) {
		freq[w]++
	}
	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		words := tokenize(sent)
		var sum int
		for _, w := range words {
			sum += freq[w]
		}
		var score float64
		if len(words) > 0 {
			score = float64(sum) / float64(len(words))
		}
		scores[i] = ranked{idx: i, score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	picked := scores[:max]
	sort.Slice(picked, func(i, j int) bool { return picked[i].idx < picked[j].idx })
	parts := make([]string, 0, max)
	for _, p := range picked {
		parts = append(parts, strings.TrimSpace(sentences[p.idx]))
	}
	return strings.Join(parts, " "), nil
}

func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// templateGenerator is the degraded-mode generator: it echoes the prompt
// followed by a canned continuation chosen deterministically from the
// prompt hash, matching the full-text output shape of a real generator.
type templateGenerator struct {
	nopCloser
}

var cannedContinuations = []string{
	"That is an interesting topic, and there is a lot to say about it.",
	"Let me share a few thoughts on that.",
	"There are several ways to look at this.",
	"Here is one way to think about it.",
}

func (templateGenerator) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	cont := cannedContinuations[int(h.Sum32())%len(cannedContinuations)]
	out := prompt + " " + cont
	if opts.MaxTokens > 0 {
		words := strings.Fields(out)
		if len(words) > opts.MaxTokens {
			out = strings.Join(words[:opts.MaxTokens], " ")
		}
	}
	return out, nil
}

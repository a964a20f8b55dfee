package capability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inferd/internal/common/fsutil"
)

// Embedded default lexicons used by the degraded-mode strategies when no
// lexicon artifact is present in the models directory.
var (
	defaultPositiveWords = []string{
		"good", "great", "excellent", "happy", "love", "wonderful", "best",
		"amazing", "nice", "fantastic", "helpful", "thanks", "thank",
	}
	defaultNegativeWords = []string{
		"bad", "terrible", "awful", "sad", "hate", "worst", "horrible",
		"angry", "useless", "broken", "annoying", "disappointing",
	}
	defaultToxicWords = []string{
		"hate", "kill", "stupid", "idiot", "moron", "trash", "shut",
		"loser", "dumb", "worthless", "die",
	}
)

// DefaultSpecs declares the standard capability set. Capabilities with a
// model artifact in modelsDir load it via their primary strategy and fall
// back to an embedded heuristic (degraded mode) when it is absent. Vision
// has no fallback: its calibration artifact must be present, and the
// analysis pipeline treats the capability as mandatory. Capabilities whose
// only implementation here is a heuristic load in degraded mode so that
// health reporting surfaces them.
func DefaultSpecs(modelsDir string) []Spec {
	dir, err := fsutil.ExpandHome(modelsDir)
	if err != nil {
		dir = modelsDir
	}
	return []Spec{
		{
			Name: Vision,
			Kind: KindImageClassifier,
			Strategies: []Strategy{
				{Name: "calibration-file", Load: func() (Invoker, error) {
					p, err := loadVisionProfile(filepath.Join(dir, "vision.toml"))
					if err != nil {
						return nil, err
					}
					return newStatVision(p), nil
				}},
			},
		},
		{
			Name: Sentiment,
			Kind: KindTextClassifier,
			Strategies: []Strategy{
				{Name: "lexicon-file", Load: func() (Invoker, error) {
					pos, neg, err := loadSentimentLexicon(filepath.Join(dir, "sentiment.lexicon"))
					if err != nil {
						return nil, err
					}
					return newLexiconSentiment(pos, neg), nil
				}},
				{Name: "builtin-lexicon", Degraded: true, Load: func() (Invoker, error) {
					return newLexiconSentiment(defaultPositiveWords, defaultNegativeWords), nil
				}},
			},
		},
		{
			Name: ZeroShot,
			Kind: KindZeroShotClassifier,
			Strategies: []Strategy{
				{Name: "builtin-keyword", Degraded: true, Load: func() (Invoker, error) {
					return keywordZeroShot{}, nil
				}},
			},
		},
		{
			Name: Generator,
			Kind: KindGenerator,
			Strategies: []Strategy{
				{Name: "llama", Load: func() (Invoker, error) {
					path, err := findGGUF(dir)
					if err != nil {
						return nil, err
					}
					return newLlamaGenerator(path)
				}},
				{Name: "template", Degraded: true, Load: func() (Invoker, error) {
					return templateGenerator{}, nil
				}},
			},
		},
		{
			Name: Summarizer,
			Kind: KindSummarizer,
			Strategies: []Strategy{
				{Name: "builtin-extractive", Degraded: true, Load: func() (Invoker, error) {
					return frequencySummarizer{maxSentences: 3}, nil
				}},
			},
		},
		{
			Name: Embeddings,
			Kind: KindEmbedder,
			Strategies: []Strategy{
				{Name: "builtin-hashing", Degraded: true, Load: func() (Invoker, error) {
					return hashEmbedder{}, nil
				}},
			},
		},
		{
			Name: Toxicity,
			Kind: KindTextClassifier,
			Strategies: []Strategy{
				{Name: "lexicon-file", Load: func() (Invoker, error) {
					words, err := loadWordList(filepath.Join(dir, "toxicity.lexicon"))
					if err != nil {
						return nil, err
					}
					return newLexiconToxicity(words), nil
				}},
				{Name: "builtin-lexicon", Degraded: true, Load: func() (Invoker, error) {
					return newLexiconToxicity(defaultToxicWords), nil
				}},
			},
		},
	}
}

// loadSentimentLexicon reads a lexicon file with one word per line,
// prefixed '+' for positive and '-' for negative.
func loadSentimentLexicon(path string) (positive, negative []string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			positive = append(positive, strings.ToLower(line[1:]))
		case strings.HasPrefix(line, "-"):
			negative = append(negative, strings.ToLower(line[1:]))
		}
	}
	if len(positive) == 0 && len(negative) == 0 {
		return nil, nil, fmt.Errorf("lexicon %s has no entries", path)
	}
	return positive, negative, nil
}

// loadWordList reads a plain word-per-line file, skipping blanks and comments.
func loadWordList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.ToLower(line))
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s has no entries", path)
	}
	return words, nil
}

// findGGUF returns the first *.gguf file in dir, for the llama-backed
// generator strategy.
func findGGUF(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			return filepath.Join(abs, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no gguf model in %s", abs)
}

package textfilter

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DefaultHallucinationPatterns match boilerplate phrases the decoder emits
// on silence or noise: video sign-offs, credits, music/applause markers,
// punctuation-only output, and stray single particles. Matched as
// case-insensitive substring searches over the joined transcript.
var DefaultHallucinationPatterns = []string{
	`^字幕提供.*$`,
	`^ご視聴ありがとうございました.*$`,
	`^チャンネル登録.*$`,
	`^お疲れ様でした$`,
	`^\.+$`,
	`^,+$`,
	`^[\s　]+$`,
	`(?:music|♪|♫)+`,
	`\[音楽\]`,
	`\[拍手\]`,
	`^\s*お\s*$`,
	`^\s*ん\s*$`,
}

// Reasons reported by HallucinationFilter.Filter.
const (
	ReasonPatternMatch = "pattern_match"
	ReasonRepetition   = "repetition"
)

// repetitionCoverage is the fraction of the text a repeated phrase must
// cover to count as a hallucination. Below this, repeated short words are
// treated as legitimate speech.
const repetitionCoverage = 0.8

// HallucinationFilter detects and repairs two decoder failure modes:
// fixed boilerplate output and runaway repetition. It runs over the fully
// joined transcript, never per segment; repetition only manifests across
// the whole output.
//
// Safe for concurrent use.
type HallucinationFilter struct {
	enabled        bool
	minRepetitions int
	maxPhraseLen   int
	compiled       []*regexp.Regexp
	log            zerolog.Logger

	mu                 sync.Mutex
	totalFiltered      int64
	repetitionFiltered int64
	patternFiltered    int64
}

// HallucinationStats is the filter's introspection snapshot.
type HallucinationStats struct {
	Enabled            bool  `json:"enabled"`
	MinRepetitionCount int   `json:"min_repetition_count"`
	MaxPhraseLength    int   `json:"max_repetition_length"`
	TotalFiltered      int64 `json:"total_filtered"`
	RepetitionFiltered int64 `json:"repetition_filtered"`
	PatternFiltered    int64 `json:"pattern_filtered"`
}

// Outcome is the result of a filter pass. The input is never mutated;
// Text is a fresh value.
type Outcome struct {
	Text     string
	Filtered bool
	Reason   string
}

// NewHallucinationFilter creates a hallucination filter.
// minRepetitions is the minimum repeat count to flag (typically 3);
// maxPhraseLen caps the repeated-phrase search length in runes.
func NewHallucinationFilter(enabled bool, minRepetitions, maxPhraseLen int, log zerolog.Logger) *HallucinationFilter {
	f := &HallucinationFilter{
		enabled:        enabled,
		minRepetitions: minRepetitions,
		maxPhraseLen:   maxPhraseLen,
		log:            log,
	}
	for _, p := range DefaultHallucinationPatterns {
		f.compiled = append(f.compiled, regexp.MustCompile(`(?i)`+p))
	}
	return f
}

// Filter checks text for hallucinations. Boilerplate matches empty the
// text; repetition collapses it to a single instance of the repeated
// phrase. Clean text passes through unchanged.
func (f *HallucinationFilter) Filter(text string) Outcome {
	if !f.enabled || text == "" {
		return Outcome{Text: text}
	}

	if f.matchesPattern(text) {
		f.record(&f.patternFiltered)
		f.log.Debug().Str("text", truncate(text, 50)).Msg("pattern hallucination filtered")
		return Outcome{Text: "", Filtered: true, Reason: ReasonPatternMatch}
	}

	if ok, phrase := f.detectRepetition(text); ok {
		f.record(&f.repetitionFiltered)
		f.log.Debug().Str("phrase", phrase).Str("text", truncate(text, 50)).Msg("repetition hallucination filtered")
		if phrase != "" {
			return Outcome{
				Text:     strings.TrimSpace(phrase),
				Filtered: true,
				Reason:   ReasonRepetition + ":" + phrase,
			}
		}
		return Outcome{Text: "", Filtered: true, Reason: ReasonRepetition}
	}

	return Outcome{Text: text}
}

// matchesPattern reports whether text contains known boilerplate.
func (f *HallucinationFilter) matchesPattern(text string) bool {
	for _, re := range f.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// detectRepetition looks for pathological repetition and returns the
// repeated phrase if found.
//
// Two detectors run in order: identical whitespace-separated tokens, then
// a repeated-prefix scan. The scan tries prefix lengths from 2 upward and
// returns on the first length whose non-overlapping occurrences repeat at
// least minRepetitions times and cover >= 80% of the text. The shortest
// qualifying prefix wins even when it is a sub-phrase of a longer repeated
// phrase ("ab" inside "ababab"), a known limitation kept for parity with
// established output.
func (f *HallucinationFilter) detectRepetition(text string) (bool, string) {
	if text == "" || utf8.RuneCountInString(text) < 6 {
		return false, ""
	}
	text = strings.TrimSpace(text)

	words := strings.Fields(text)
	if len(words) >= f.minRepetitions {
		allSame := true
		for _, w := range words[1:] {
			if w != words[0] {
				allSame = false
				break
			}
		}
		if allSame {
			return true, words[0]
		}
	}

	runes := []rune(text)
	total := len(runes)
	maxLen := f.maxPhraseLen
	if half := total / 2; half < maxLen {
		maxLen = half
	}
	for phraseLen := 2; phraseLen <= maxLen; phraseLen++ {
		phrase := string(runes[:phraseLen])
		reps := strings.Count(text, phrase)
		if reps < f.minRepetitions {
			continue
		}
		covered := phraseLen * reps
		if float64(covered)/float64(total) >= repetitionCoverage {
			return true, phrase
		}
	}

	return false, ""
}

func (f *HallucinationFilter) record(counter *int64) {
	f.mu.Lock()
	f.totalFiltered++
	*counter++
	f.mu.Unlock()
}

// Stats returns the filter's counters and configuration.
func (f *HallucinationFilter) Stats() HallucinationStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return HallucinationStats{
		Enabled:            f.enabled,
		MinRepetitionCount: f.minRepetitions,
		MaxPhraseLength:    f.maxPhraseLen,
		TotalFiltered:      f.totalFiltered,
		RepetitionFiltered: f.repetitionFiltered,
		PatternFiltered:    f.patternFiltered,
	}
}

// truncate shortens s to at most n runes for log output.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

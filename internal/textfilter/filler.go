// Package textfilter cleans raw speech-recognition output: it drops
// conversational filler segments (aizuchi) and detects decoder
// hallucinations in the aggregated transcript.
package textfilter

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DefaultFillerPatterns match Japanese backchannel utterances that carry no
// transcript value: acknowledgements, disfluencies, agreement phrases,
// exclamations, and laughter. Patterns are anchored full matches and
// tolerate trailing punctuation.
var DefaultFillerPatterns = []string{
	// Basic acknowledgements
	`^うん[。．、]*$`,
	`^ん[ー〜]*[。．、]*$`,
	`^はい[。．、]*$`,
	`^ええ[。．、]*$`,
	`^へー[ー]*[。．、]*$`,

	// Disfluency fillers
	`^えー[っと]*[。．、]*$`,
	`^あー[。．、]*$`,
	`^まあ[。．、]*$`,
	`^えっと[。．、]*$`,
	`^あのー*[。．、]*$`,
	`^その[ー]*[。．、]*$`,
	`^なんか[。．、]*$`,

	// Agreement / understanding
	`^そうですね[。．、]*$`,
	`^なるほど[ね]*[。．、]*$`,
	`^確かに[。．、]*$`,
	`^そうそう[。．、]*$`,
	`^そっか[ー]*[。．、]*$`,
	`^そうだね[。．、]*$`,
	`^だね[。．、]*$`,
	`^ね[ー]*[。．、]*$`,

	// Exclamations
	`^おー[。．、]*$`,
	`^わー[。．、]*$`,
	`^すごい[。．、]*$`,
	`^ふーん[。．、]*$`,
	`^ほー[。．、]*$`,

	// Laughter
	`^[笑わはw]+[。．、]*$`,
	`^\(笑\)[。．、]*$`,
	`^ふふ[ふ]*[。．、]*$`,
	`^あは[は]*[。．、]*$`,
}

// FillerFilter classifies short transcript fragments as non-substantive
// filler. It is applied per segment, before segments are joined.
//
// Safe for concurrent use; the pattern set can be edited at runtime.
type FillerFilter struct {
	mu        sync.RWMutex
	patterns  []string
	compiled  []*regexp.Regexp
	maxLength int
	enabled   bool
	log       zerolog.Logger
}

// FillerStats is the filter's introspection snapshot.
type FillerStats struct {
	Enabled      bool `json:"enabled"`
	PatternCount int  `json:"pattern_count"`
	MaxLength    int  `json:"max_length"`
}

// NewFillerFilter creates a filler filter with the default pattern set.
// Fragments longer than maxLength runes are never classified as filler.
func NewFillerFilter(enabled bool, maxLength int, log zerolog.Logger) *FillerFilter {
	f := &FillerFilter{
		maxLength: maxLength,
		enabled:   enabled,
		log:       log,
	}
	for _, p := range DefaultFillerPatterns {
		f.patterns = append(f.patterns, p)
		f.compiled = append(f.compiled, regexp.MustCompile(p))
	}
	return f
}

// IsFiller reports whether the fragment is a filler utterance.
//
// A disabled filter always returns false. Fragments longer than the
// configured max length are assumed substantive regardless of content.
// An empty fragment is not filler; empties are the caller's concern.
func (f *FillerFilter) IsFiller(text string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.enabled {
		return false
	}

	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) > f.maxLength {
		return false
	}
	if t == "" {
		return false
	}

	for _, re := range f.compiled {
		if re.MatchString(t) {
			f.log.Debug().Str("text", t).Msg("filler detected")
			return true
		}
	}
	return false
}

// AddPattern compiles and appends a pattern to the active set.
func (f *FillerFilter) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
	f.compiled = append(f.compiled, re)
	return nil
}

// RemovePattern removes a pattern by its source string. Returns true if
// it was present.
func (f *FillerFilter) RemovePattern(pattern string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.patterns {
		if p == pattern {
			f.patterns = append(f.patterns[:i], f.patterns[i+1:]...)
			f.compiled = append(f.compiled[:i], f.compiled[i+1:]...)
			return true
		}
	}
	return false
}

// Patterns returns a copy of the active pattern sources.
func (f *FillerFilter) Patterns() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}

// Stats returns the filter's introspection snapshot.
func (f *FillerFilter) Stats() FillerStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FillerStats{
		Enabled:      f.enabled,
		PatternCount: len(f.patterns),
		MaxLength:    f.maxLength,
	}
}

// Package hotwords maintains the domain vocabulary list used to bias
// speech recognition toward project-specific terminology (proper nouns,
// product names, jargon) via the decoder's initial prompt.
package hotwords

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry holds an ordered, deduplicated set of vocabulary terms merged
// from a JSON file, environment defaults, and runtime additions. Insertion
// order is preserved: earlier terms survive prompt truncation.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	terms []string
	path  string // JSON file backing the registry, may be empty
	log   zerolog.Logger
}

// fileDoc is the persisted JSON document format.
type fileDoc struct {
	Hotwords    []string `json:"hotwords"`
	Description string   `json:"description,omitempty"`
}

// Stats is the registry's introspection snapshot for the status endpoint.
type Stats struct {
	Count int    `json:"count"`
	Path  string `json:"path,omitempty"`
}

// New creates a registry backed by the given JSON file path (may be empty
// for a purely in-memory registry). If the file exists it is loaded
// immediately; a malformed file is logged and ignored.
func New(path string, log zerolog.Logger) *Registry {
	r := &Registry{path: path, log: log}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := r.LoadFile(path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("failed to load hotwords file")
			}
		}
	}
	return r
}

// Add inserts a term if not already present. Returns true if inserted.
func (r *Registry) Add(term string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(term)
}

// add inserts without locking. Caller must hold r.mu.
func (r *Registry) add(term string) bool {
	for _, t := range r.terms {
		if t == term {
			return false
		}
	}
	r.terms = append(r.terms, term)
	return true
}

// AddMany inserts each term, skipping duplicates. Returns the number
// actually inserted.
func (r *Registry) AddMany(terms []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, t := range terms {
		if r.add(t) {
			added++
		}
	}
	return added
}

// Remove deletes a term. Returns true if it was present.
func (r *Registry) Remove(term string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.terms {
		if t == term {
			r.terms = append(r.terms[:i], r.terms[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all terms.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terms = nil
}

// Contains reports whether the exact term is registered.
func (r *Registry) Contains(term string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.terms {
		if t == term {
			return true
		}
	}
	return false
}

// Len returns the number of registered terms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.terms)
}

// Terms returns a copy of the term list in insertion order.
func (r *Registry) Terms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.terms))
	copy(out, r.terms)
	return out
}

// LoadFile merges terms from a JSON document with a "hotwords" array.
// Existing terms win; new terms append in file order. A parse failure
// leaves the registry unchanged and returns the error; callers log and
// continue, they never treat this as fatal.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read hotwords file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse hotwords file: %w", err)
	}
	added := r.AddMany(doc.Hotwords)
	r.log.Info().Str("path", path).Int("loaded", len(doc.Hotwords)).Int("added", added).Msg("hotwords loaded from file")
	return nil
}

// LoadList merges terms from a comma-separated string, the format used by
// the WHISPER_HOTWORDS environment variable. Blank entries are skipped.
func (r *Registry) LoadList(csv string) int {
	var terms []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	added := r.AddMany(terms)
	if added > 0 {
		r.log.Info().Int("added", added).Msg("hotwords loaded from list")
	}
	return added
}

// SaveFile writes the registry to its backing file, or to path if given.
func (r *Registry) SaveFile(path string) error {
	if path == "" {
		path = r.path
	}
	if path == "" {
		return fmt.Errorf("no hotwords file path configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create hotwords dir: %w", err)
		}
	}

	r.mu.RLock()
	doc := fileDoc{
		Hotwords:    append([]string(nil), r.terms...),
		Description: "Domain vocabulary for transcription biasing",
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hotwords: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write hotwords file: %w", err)
	}
	r.log.Info().Str("path", path).Int("count", len(doc.Hotwords)).Msg("hotwords saved")
	return nil
}

// Prompt renders up to maxTerms registry terms as a comma-separated string
// for the decoder's initial prompt. Returns "" when the registry is empty.
func (r *Registry) Prompt(maxTerms int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.terms) == 0 {
		return ""
	}
	terms := r.terms
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return strings.Join(terms, ", ")
}

// MergeWithRequestTerms combines the registry with per-request terms and
// renders the result as a comma-separated prompt string. Registry terms
// keep priority: request terms are deduplicated against them, appended
// after, and truncation to maxTotal drops the trailing request terms first.
func (r *Registry) MergeWithRequestTerms(requestTerms []string, maxTotal int) string {
	r.mu.RLock()
	combined := make([]string, len(r.terms))
	copy(combined, r.terms)
	r.mu.RUnlock()

	for _, t := range requestTerms {
		seen := false
		for _, c := range combined {
			if c == t {
				seen = true
				break
			}
		}
		if !seen {
			combined = append(combined, t)
		}
	}

	if maxTotal > 0 && len(combined) > maxTotal {
		combined = combined[:maxTotal]
	}
	if len(combined) == 0 {
		return ""
	}
	return strings.Join(combined, ", ")
}

// Stats returns the registry's introspection snapshot.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Count: len(r.terms), Path: r.path}
}

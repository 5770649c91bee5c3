package textfilter

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestHallucinationFilter() *HallucinationFilter {
	return NewHallucinationFilter(true, 3, 20, zerolog.Nop())
}

func TestFilterCleanText(t *testing.T) {
	f := newTestHallucinationFilter()
	in := "今日の議題はプロジェクトの進捗についてです"
	out := f.Filter(in)
	if out.Filtered {
		t.Errorf("clean text flagged as hallucination: %+v", out)
	}
	if out.Text != in {
		t.Errorf("Text = %q, want unchanged input", out.Text)
	}
}

func TestFilterEmpty(t *testing.T) {
	f := newTestHallucinationFilter()
	out := f.Filter("")
	if out.Filtered || out.Text != "" {
		t.Errorf("Filter(\"\") = %+v, want unfiltered empty", out)
	}
}

func TestFilterPatternMatch(t *testing.T) {
	f := newTestHallucinationFilter()

	tests := []string{
		"ご視聴ありがとうございました",
		"チャンネル登録お願いします",
		"字幕提供:誰か",
		"お疲れ様でした",
		"...",
		"なんか[音楽]が流れていた",
		"♪♪♪",
		"ん",
	}
	for _, text := range tests {
		out := f.Filter(text)
		if !out.Filtered {
			t.Errorf("Filter(%q) not filtered, want pattern match", text)
			continue
		}
		if out.Reason != ReasonPatternMatch {
			t.Errorf("Filter(%q) reason = %q, want %q", text, out.Reason, ReasonPatternMatch)
		}
		if out.Text != "" {
			t.Errorf("Filter(%q) text = %q, want empty", text, out.Text)
		}
	}
}

func TestFilterTokenRepetition(t *testing.T) {
	f := newTestHallucinationFilter()

	out := f.Filter("しょうがない しょうがない しょうがない")
	if !out.Filtered {
		t.Fatal("repeated token not filtered")
	}
	if out.Text != "しょうがない" {
		t.Errorf("Text = %q, want single token", out.Text)
	}
	if !strings.HasPrefix(out.Reason, ReasonRepetition+":") {
		t.Errorf("Reason = %q, want %q prefix", out.Reason, ReasonRepetition+":")
	}
}

func TestFilterTokenRepetitionBelowThreshold(t *testing.T) {
	f := newTestHallucinationFilter()
	out := f.Filter("そうですね そうですね")
	if out.Filtered {
		t.Errorf("two repeats should pass with minRepetitions=3: %+v", out)
	}
}

func TestFilterPhraseRepetition(t *testing.T) {
	f := newTestHallucinationFilter()

	out := f.Filter("abcabcabcabc")
	if !out.Filtered {
		t.Fatal("repeated phrase not filtered")
	}
	if out.Text != "abc" {
		t.Errorf("Text = %q, want %q", out.Text, "abc")
	}
	if out.Reason != ReasonRepetition+":abc" {
		t.Errorf("Reason = %q, want %q", out.Reason, ReasonRepetition+":abc")
	}
}

func TestFilterShortestPrefixWins(t *testing.T) {
	// The prefix scan stops at the first qualifying length, so "ababab"
	// collapses to "ab" rather than "abab".
	f := newTestHallucinationFilter()
	out := f.Filter("ababab")
	if !out.Filtered {
		t.Fatal("repeated prefix not filtered")
	}
	if out.Text != "ab" {
		t.Errorf("Text = %q, want %q", out.Text, "ab")
	}
}

func TestFilterRepetitionCoverage(t *testing.T) {
	f := newTestHallucinationFilter()
	// The leading phrase repeats but covers well under 80% of the text,
	// so it reads as legitimate speech.
	out := f.Filter("あいあいあい、そして長い別の話題がずっと続いています")
	if out.Filtered {
		t.Errorf("low-coverage repetition should pass: %+v", out)
	}
}

func TestFilterShortTextSkipsRepetition(t *testing.T) {
	f := newTestHallucinationFilter()
	// Under six runes the repetition detector does not run.
	out := f.Filter("ははは")
	if out.Filtered {
		t.Errorf("short text should skip repetition detection: %+v", out)
	}
}

func TestFilterDisabled(t *testing.T) {
	f := NewHallucinationFilter(false, 3, 20, zerolog.Nop())
	in := "ご視聴ありがとうございました"
	out := f.Filter(in)
	if out.Filtered || out.Text != in {
		t.Errorf("disabled filter should pass everything: %+v", out)
	}
}

func TestHallucinationStats(t *testing.T) {
	f := newTestHallucinationFilter()

	f.Filter("ご視聴ありがとうございました")
	f.Filter("abcabcabcabc")
	f.Filter("普通の発言です")

	s := f.Stats()
	if s.TotalFiltered != 2 {
		t.Errorf("TotalFiltered = %d, want 2", s.TotalFiltered)
	}
	if s.PatternFiltered != 1 {
		t.Errorf("PatternFiltered = %d, want 1", s.PatternFiltered)
	}
	if s.RepetitionFiltered != 1 {
		t.Errorf("RepetitionFiltered = %d, want 1", s.RepetitionFiltered)
	}
	if s.MinRepetitionCount != 3 || s.MaxPhraseLength != 20 {
		t.Errorf("config snapshot = %+v", s)
	}
}

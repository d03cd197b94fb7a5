package segment

import (
	"testing"

	"media-dubber/internal/domain"
)

func TestBuildEmptyHitsProducesEmptyScript(t *testing.T) {
	s := New(Options{})
	script, stats := s.Build(nil)
	if len(script.Segments) != 0 {
		t.Fatalf("expected no segments, got %+v", script.Segments)
	}
	if stats.TotalWords != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestBuildNoGapKeepsWordsOnOneLine(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "hello", StartSec: 0.00, EndSec: 0.40, Confidence: 0.9},
		{Word: "there", StartSec: 0.45, EndSec: 0.80, Confidence: 0.9},
	}
	script, _ := s.Build(hits)
	if len(script.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(script.Segments), script.Segments)
	}
	if script.Segments[0].Text != "hello there" {
		t.Fatalf("unexpected text: %q", script.Segments[0].Text)
	}
}

func TestBuildShortPauseInsertsInlineMarker(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "hello", StartSec: 0.00, EndSec: 0.40},
		{Word: "world", StartSec: 1.10, EndSec: 1.50}, // gap 0.7 -> short
	}
	script, stats := s.Build(hits)
	if len(script.Segments) != 1 {
		t.Fatalf("expected single line with inline marker, got %+v", script.Segments)
	}
	if script.Segments[0].Text != "hello • world" {
		t.Fatalf("expected inline short marker, got %q", script.Segments[0].Text)
	}
	if stats.ShortPauses != 1 {
		t.Fatalf("expected 1 short pause counted, got %d", stats.ShortPauses)
	}
}

func TestBuildLongPauseInsertsInlineMarker(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "hello", StartSec: 0.00, EndSec: 0.40},
		{Word: "world", StartSec: 2.10, EndSec: 2.50}, // gap 1.7 -> long
	}
	script, stats := s.Build(hits)
	if script.Segments[0].Text != "hello •• world" {
		t.Fatalf("expected inline long marker, got %q", script.Segments[0].Text)
	}
	if stats.LongPauses != 1 {
		t.Fatalf("expected 1 long pause counted, got %d", stats.LongPauses)
	}
}

func TestBuildParagraphBreakSplitsSegments(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "hello", StartSec: 0.00, EndSec: 0.40},
		{Word: "world", StartSec: 4.00, EndSec: 4.40}, // gap 3.6 -> paragraph
	}
	script, stats := s.Build(hits)
	if len(script.Segments) != 2 {
		t.Fatalf("expected 2 segments across paragraph break, got %+v", script.Segments)
	}
	if script.Segments[0].Pause != domain.PauseParagraph {
		t.Fatalf("expected paragraph marker on first segment, got %v", script.Segments[0].Pause)
	}
	if stats.ParagraphBreaks != 1 {
		t.Fatalf("expected 1 paragraph break, got %d", stats.ParagraphBreaks)
	}
}

func TestBuildSentenceEndBreaksLineWithoutInlineMarker(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "Done.", StartSec: 0.00, EndSec: 0.40},
		{Word: "Next", StartSec: 1.50, EndSec: 1.80}, // gap 1.1 >= 1.0, terminal punctuation
	}
	script, _ := s.Build(hits)
	if len(script.Segments) != 2 {
		t.Fatalf("expected sentence break into 2 segments, got %+v", script.Segments)
	}
	if script.Segments[0].Text != "Done." {
		t.Fatalf("unexpected first segment text: %q", script.Segments[0].Text)
	}
}

func TestBuildSegmentOrderingInvariant(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{
		{Word: "a", StartSec: 0.0, EndSec: 0.2},
		{Word: "b", StartSec: 4.0, EndSec: 4.2},
		{Word: "c", StartSec: 8.0, EndSec: 8.2},
	}
	script, _ := s.Build(hits)
	for i := 0; i+1 < len(script.Segments); i++ {
		if script.Segments[i].StartSec > script.Segments[i+1].StartSec {
			t.Fatalf("segments out of start-time order: %+v", script.Segments)
		}
		if script.Segments[i].EndSec > script.Segments[i+1].StartSec {
			t.Fatalf("segments overlap: %+v", script.Segments)
		}
	}
}

func TestBuildSingleHitEndEqualsStart(t *testing.T) {
	s := New(Options{})
	hits := []domain.RecognizerHit{{Word: "solo", StartSec: 1.0, EndSec: 1.0}}
	script, _ := s.Build(hits)
	if len(script.Segments) != 1 || script.Segments[0].EndSec != 1.0 {
		t.Fatalf("expected single segment with end==start, got %+v", script.Segments)
	}
}

func TestBuildSoftLineLimitForcesBreak(t *testing.T) {
	s := New(Options{SoftLineLimit: 10})
	hits := []domain.RecognizerHit{
		{Word: "abcdefg", StartSec: 0.0, EndSec: 0.1},
		{Word: "hijklmn", StartSec: 0.15, EndSec: 0.3},
		{Word: "opqrstu", StartSec: 0.35, EndSec: 0.5},
	}
	script, _ := s.Build(hits)
	if len(script.Segments) < 2 {
		t.Fatalf("expected soft limit to force a line break, got %+v", script.Segments)
	}
}

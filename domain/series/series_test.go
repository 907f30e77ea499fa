package series

import (
	"math"
	"testing"
	"time"
)

func ts(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestNew_SortsObservations(t *testing.T) {
	// Scenario: observations arrive out of order from a re-exported logger file
	s := New("silver_perch", []Observation{
		{Timestamp: ts(3, 10), Value: 2},
		{Timestamp: ts(1, 8), Value: 1},
		{Timestamp: ts(2, 12), Value: 3},
	})

	if s.Len() != 3 {
		t.Fatalf("expected 3 observations, got %d", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if !s.Observations[i-1].Timestamp.Before(s.Observations[i].Timestamp) {
			t.Errorf("observations not strictly increasing at index %d", i)
		}
	}
	if s.Observations[0].Value != 1 {
		t.Errorf("expected earliest observation first, got value %v", s.Observations[0].Value)
	}
}

func TestNew_DeduplicatesKeepingFirst(t *testing.T) {
	s := New("aci", []Observation{
		{Timestamp: ts(1, 8), Value: 1.5},
		{Timestamp: ts(1, 8), Value: 9.9},
		{Timestamp: ts(1, 8), Value: 7.7},
		{Timestamp: ts(1, 10), Value: 2.5},
	})

	if s.Len() != 2 {
		t.Fatalf("expected 2 observations after dedupe, got %d", s.Len())
	}
	if s.Observations[0].Value != 1.5 {
		t.Errorf("dedupe should keep the first occurrence, got %v", s.Observations[0].Value)
	}
}

func TestNew_DoesNotMutateInput(t *testing.T) {
	input := []Observation{
		{Timestamp: ts(2, 0), Value: 2},
		{Timestamp: ts(1, 0), Value: 1},
	}
	New("spl", input)

	if !input[0].Timestamp.Equal(ts(2, 0)) {
		t.Error("constructor reordered the caller's slice")
	}
}

func TestValidCount_IgnoresNaN(t *testing.T) {
	s := New("bde", []Observation{
		{Timestamp: ts(1, 0), Value: 1},
		{Timestamp: ts(1, 2), Value: math.NaN()},
		{Timestamp: ts(1, 4), Value: 3},
	})

	if got := s.ValidCount(); got != 2 {
		t.Errorf("expected 2 valid observations, got %d", got)
	}
	if got := s.Len(); got != 3 {
		t.Errorf("NaN observations still count toward Len, got %d", got)
	}
}

func TestSpan(t *testing.T) {
	empty := New("empty", nil)
	if _, _, ok := empty.Span(); ok {
		t.Error("empty series should report no span")
	}

	s := New("toadfish", []Observation{
		{Timestamp: ts(5, 12), Value: 1},
		{Timestamp: ts(1, 2), Value: 1},
	})
	start, end, ok := s.Span()
	if !ok {
		t.Fatal("expected a span")
	}
	if !start.Equal(ts(1, 2)) || !end.Equal(ts(5, 12)) {
		t.Errorf("unexpected span %v - %v", start, end)
	}
}

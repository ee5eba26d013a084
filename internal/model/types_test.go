package model

import (
	"math"
	"testing"
)

func TestStatsAggregateRunningMean(t *testing.T) {
	var agg StatsAggregate
	agg.Record(SessionResult{WPM: 20, Accuracy: 90, DurationSeconds: 60, CorrectKeystrokes: 100})
	agg.Record(SessionResult{WPM: 40, Accuracy: 70, DurationSeconds: 30, CorrectKeystrokes: 50})

	if agg.SessionsCompleted != 2 {
		t.Fatalf("expected 2 sessions, got %d", agg.SessionsCompleted)
	}
	if agg.AvgWPM != 30 {
		t.Fatalf("expected avg wpm 30, got %v", agg.AvgWPM)
	}
	if agg.AvgAccuracy != 80 {
		t.Fatalf("expected avg accuracy 80, got %v", agg.AvgAccuracy)
	}
	if agg.BestWPM != 40 || agg.BestAccuracy != 90 {
		t.Fatalf("unexpected bests: %+v", agg)
	}
	if math.Abs(agg.TotalTime-1.5) > 1e-9 {
		t.Fatalf("expected 1.5 minutes, got %v", agg.TotalTime)
	}
	if agg.TotalWords != 30 {
		t.Fatalf("expected 30 words, got %v", agg.TotalWords)
	}
}

func TestCriteriaStrictness(t *testing.T) {
	final := Criteria{MinWPM: 18, MinAccuracy: 80}
	if !final.AtLeastAsStrict(Criteria{MinWPM: 15, MinAccuracy: 75}) {
		t.Fatalf("expected final to be stricter")
	}
	if final.AtLeastAsStrict(Criteria{MinWPM: 20, MinAccuracy: 75}) {
		t.Fatalf("expected 20 wpm category to be stricter than final")
	}
	if !final.Met(18, 80) || final.Met(17, 99) {
		t.Fatalf("unexpected Met result")
	}
}

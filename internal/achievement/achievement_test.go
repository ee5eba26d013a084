package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/keyboarding/internal/model"
)

func ids(defs []Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestEvaluateUnlocksAllCrossedTiers(t *testing.T) {
	got := Evaluate(map[string]struct{}{}, Signal{Type: DimWPM, Value: 35})
	assert.Equal(t, []string{"speed-10", "speed-20", "speed-30"}, ids(got))
}

func TestEvaluateSkipsUnlocked(t *testing.T) {
	unlocked := map[string]struct{}{"speed-10": {}}
	got := Evaluate(unlocked, Signal{Type: DimWPM, Value: 25})
	assert.Equal(t, []string{"speed-20"}, ids(got))
}

func TestEvaluateIgnoresOtherDimensions(t *testing.T) {
	got := Evaluate(map[string]struct{}{}, Signal{Type: DimStreak, Value: 99})
	assert.Equal(t, []string{"streak-25", "streak-50"}, ids(got))
}

func TestEvaluateZeroSessions(t *testing.T) {
	assert.Empty(t, Evaluate(map[string]struct{}{}, Signal{Type: DimSessions, Value: 0}))
}

func TestBookIdempotence(t *testing.T) {
	b := NewBook(nil)
	now := time.Unix(100, 0)
	first := b.Observe(Signal{Type: DimFirstKey, Value: 1}, now)
	require.Len(t, first, 1)
	assert.Equal(t, "first-keystroke", first[0].ID)

	second := b.Observe(Signal{Type: DimFirstKey, Value: 1}, now.Add(time.Minute))
	assert.Empty(t, second)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, now, b.Records()[0].UnlockedAt)
}

func TestBookMergeKeepsEarliest(t *testing.T) {
	early := time.Unix(10, 0)
	late := time.Unix(20, 0)
	b := NewBook([]model.AchievementRecord{{ID: "speed-10", UnlockedAt: late}})
	b.Merge([]model.AchievementRecord{{ID: "speed-10", UnlockedAt: early}, {ID: "sessions-1", UnlockedAt: late}})
	b.Merge([]model.AchievementRecord{{ID: "speed-10", UnlockedAt: late}})

	require.Equal(t, 2, b.Len())
	recs := b.Records()
	assert.Equal(t, "speed-10", recs[0].ID)
	assert.Equal(t, early, recs[0].UnlockedAt)
	assert.True(t, b.Has("sessions-1"))
}

func TestLookup(t *testing.T) {
	def, ok := Lookup("accuracy-100")
	require.True(t, ok)
	assert.Equal(t, DimAccuracy, def.Dimension)
	_, ok = Lookup("nope")
	assert.False(t, ok)
}

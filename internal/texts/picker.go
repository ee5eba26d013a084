package texts

import (
	"math/rand"
	"time"
)

// Picker selects practice texts uniformly at random.
type Picker struct {
	rnd *rand.Rand
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker() *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededPicker returns a deterministic Picker.
func NewSeededPicker(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed))}
}

// Pick returns a random text from pool. When the pool holds more than one
// distinct text the result differs from previous.
func (p *Picker) Pick(pool []string, previous string) string {
	if len(pool) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(pool))
	for _, text := range pool {
		if text != previous {
			candidates = append(candidates, text)
		}
	}
	if len(candidates) == 0 {
		return pool[0]
	}
	return candidates[p.rnd.Intn(len(candidates))]
}

package queue

import (
	"sort"
	"time"
)

// IncorrectRecord tracks how often an item was answered wrong since it was
// last answered correctly.
type IncorrectRecord struct {
	Count       int       `json:"count"`
	LastAttempt time.Time `json:"last_attempt"`
}

// IncorrectMap maps item ids to their incorrect record. An id is present
// only while its latest answer was wrong.
type IncorrectMap map[string]IncorrectRecord

// FromCounts builds an IncorrectMap from the count-only form used by simpler
// progress stores. Non-positive counts are skipped.
func FromCounts(counts map[string]int) IncorrectMap {
	m := make(IncorrectMap, len(counts))
	for id, n := range counts {
		if n > 0 {
			m[id] = IncorrectRecord{Count: n}
		}
	}
	return m
}

// Mark records a wrong answer for id at now.
func (m IncorrectMap) Mark(id string, now time.Time) {
	rec := m[id]
	rec.Count++
	rec.LastAttempt = now
	m[id] = rec
}

// Clear removes id.
func (m IncorrectMap) Clear(id string) {
	delete(m, id)
}

// Has reports whether id is present.
func (m IncorrectMap) Has(id string) bool {
	_, ok := m[id]
	return ok
}

// IDs returns the ids in sorted order.
func (m IncorrectMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the count-only form.
func (m IncorrectMap) Counts() map[string]int {
	out := make(map[string]int, len(m))
	for id, rec := range m {
		out[id] = rec.Count
	}
	return out
}

// Clone returns a copy that never aliases m. A nil map clones to an empty one.
func (m IncorrectMap) Clone() IncorrectMap {
	out := make(IncorrectMap, len(m))
	for id, rec := range m {
		out[id] = rec
	}
	return out
}

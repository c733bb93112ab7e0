package agent

import "math"

const ActionCount = 5

type Values [ActionCount]float64

func (v Values) Max() float64 {
	return v[v.ArgMax()]
}

// ArgMax breaks ties toward the lowest action index.
func (v Values) ArgMax() int {
	best := 0
	for i := 1; i < ActionCount; i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

type QTable struct {
	m map[State]*Values
}

func NewQTable() *QTable {
	return &QTable{m: make(map[State]*Values)}
}

// GetOrInsert returns the vector stored for s, inserting a zero vector when
// s is unseen. Every call through this accessor may grow the table.
func (q *QTable) GetOrInsert(s State) *Values {
	if v, ok := q.m[s]; ok {
		return v
	}
	v := &Values{}
	q.m[s] = v
	return v
}

// Lookup never grows the table; unseen states read as zero.
func (q *QTable) Lookup(s State) (Values, bool) {
	if v, ok := q.m[s]; ok {
		return *v, true
	}
	return Values{}, false
}

func (q *QTable) Len() int {
	return len(q.m)
}

func (q *QTable) Reset() {
	q.m = make(map[State]*Values)
}

// Export encodes every entry with its versioned state key.
func (q *QTable) Export() map[string][]float64 {
	out := make(map[string][]float64, len(q.m))
	for s, v := range q.m {
		out[s.Key()] = append([]float64(nil), v[:]...)
	}
	return out
}

// Import replaces the table with the decodable entries. Entries with a bad
// key, a wrong vector length or non-finite values are skipped.
func (q *QTable) Import(entries map[string][]float64) (loaded, skipped int) {
	next := make(map[State]*Values, len(entries))
	for k, raw := range entries {
		s, err := ParseStateKey(k)
		if err != nil {
			skipped++
			continue
		}
		if len(raw) != ActionCount || !allFinite(raw) {
			skipped++
			continue
		}
		var v Values
		copy(v[:], raw)
		next[s] = &v
		loaded++
	}
	q.m = next
	return loaded, skipped
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

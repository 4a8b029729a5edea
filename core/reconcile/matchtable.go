package reconcile

import "sync"

// Match is the best-known target-side counterpart for a NormalizedKey.
type Match struct {
	// Name is the target-side identifying name.
	Name string

	// Record is the last known state of the target record. For dry-run
	// placeholders it is the record that would have been created.
	Record Record

	// Placeholder marks entries inserted during a dry run; nothing exists
	// in the target behind them.
	Placeholder bool
}

// MatchTable maps NormalizedKeys to target-side records for one run.
// Entries are added or overwritten, never removed.
type MatchTable struct {
	mu      sync.RWMutex
	entries map[string]Match
}

// NewMatchTable seeds a table from the target inventory.
// When two target records share a key the later one wins.
func NewMatchTable(target []Record) *MatchTable {
	t := &MatchTable{entries: make(map[string]Match, len(target))}
	for _, r := range target {
		name := recordName(r)
		key := r.Key()
		if name == "" || key == "" {
			continue
		}
		t.entries[key] = Match{Name: name, Record: r}
	}
	return t
}

// Lookup returns the match recorded for key.
func (t *MatchTable) Lookup(key string) (Match, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.entries[key]
	return m, ok
}

// Record inserts or overwrites the match for key.
func (t *MatchTable) Record(key string, m Match) {
	t.mu.Lock()
	t.entries[key] = m
	t.mu.Unlock()
}

// Len returns the number of entries.
func (t *MatchTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// TargetName resolves a reference to its target-side identifying name.
func (t *MatchTable) TargetName(ref string) (string, bool) {
	m, ok := t.Lookup(Normalize(ref))
	if !ok || m.Name == "" {
		return "", false
	}
	return m.Name, true
}

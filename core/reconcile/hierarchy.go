package reconcile

import (
	"sort"
	"strings"
)

// Level is the set of records sharing one depth.
type Level struct {
	Depth int
	Names []string
}

// Hierarchy is the parent/child graph of a source inventory with the depth of
// every record from its root.
type Hierarchy struct {
	records  map[string]Record
	order    []string
	byKey    map[string][]string
	parents  map[string]string
	orphans  map[string]bool
	children map[string][]string
	depths   map[string]int
	cycles   []*CycleError
}

// BuildHierarchy indexes records and computes their depths.
// Records are keyed by identifying name (display name when the name is empty);
// the first occurrence of a duplicate name wins.
func BuildHierarchy(records []Record) *Hierarchy {
	h := &Hierarchy{
		records:  make(map[string]Record, len(records)),
		byKey:    make(map[string][]string, len(records)),
		parents:  make(map[string]string, len(records)),
		orphans:  make(map[string]bool),
		children: make(map[string][]string),
		depths:   make(map[string]int, len(records)),
	}

	for _, r := range records {
		name := recordName(r)
		if name == "" {
			continue
		}
		if _, dup := h.records[name]; dup {
			continue
		}
		h.records[name] = r
		h.order = append(h.order, name)
		if key := r.Key(); key != "" {
			h.byKey[key] = append(h.byKey[key], name)
		}
	}

	for _, name := range h.order {
		ref := strings.TrimSpace(h.records[name].Parent)
		if ref == "" {
			continue
		}
		parent, ok := h.resolve(name, ref)
		if !ok {
			h.orphans[name] = true
			continue
		}
		h.parents[name] = parent
		h.children[parent] = append(h.children[parent], name)
	}

	for _, name := range h.order {
		h.depth(name)
	}

	return h
}

// recordName returns the key a record is indexed under.
func recordName(r Record) string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return strings.TrimSpace(r.DisplayName)
}

// resolve maps a parent reference to a record name: exact match first, then a
// NormalizedKey match against every record other than self.
func (h *Hierarchy) resolve(self, ref string) (string, bool) {
	if _, ok := h.records[ref]; ok {
		return ref, true
	}
	key := Normalize(ref)
	if key == "" {
		return "", false
	}
	for _, cand := range h.byKey[key] {
		if cand != self {
			return cand, true
		}
	}
	return "", false
}

// depth walks the parent chain from start with a visited set local to this
// walk, then assigns depths to every record on the path.
func (h *Hierarchy) depth(start string) int {
	if d, ok := h.depths[start]; ok {
		return d
	}

	var (
		path  []string
		index = make(map[string]int)
		cur   = start
		base  int // depth of the last record on path
	)

	for {
		if d, ok := h.depths[cur]; ok {
			base = d + 1
			break
		}
		if i, seen := index[cur]; seen {
			// path[len-1] points back at path[i]: break the cycle there
			chain := append(append([]string{}, path[i:]...), cur)
			h.cycles = append(h.cycles, &CycleError{Record: cur, Chain: chain})

			last := len(path) - 1
			h.depths[cur] = 0
			for j := last; j > i; j-- {
				h.depths[path[j]] = last - j + 1
			}
			for j := i - 1; j >= 0; j-- {
				h.depths[path[j]] = i - j
			}
			return h.depths[start]
		}

		index[cur] = len(path)
		path = append(path, cur)

		parent, ok := h.parents[cur]
		if !ok {
			if h.orphans[cur] {
				base = 1
			}
			break
		}
		cur = parent
	}

	last := len(path) - 1
	for j := last; j >= 0; j-- {
		h.depths[path[j]] = base + last - j
	}
	return h.depths[start]
}

// Resolve maps a parent reference to a record in the inventory by exact name,
// falling back to NormalizedKey.
func (h *Hierarchy) Resolve(ref string) (Record, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Record{}, false
	}
	name, ok := h.resolve("", ref)
	if !ok {
		return Record{}, false
	}
	return h.records[name], true
}

// Record returns the record indexed under name.
func (h *Hierarchy) Record(name string) (Record, bool) {
	r, ok := h.records[name]
	return r, ok
}

// Names returns every indexed record name in input order.
func (h *Hierarchy) Names() []string {
	return append([]string(nil), h.order...)
}

// Len returns the number of indexed records.
func (h *Hierarchy) Len() int {
	return len(h.order)
}

// Depth returns the depth of the named record.
func (h *Hierarchy) Depth(name string) int {
	return h.depths[name]
}

// Depths returns a copy of the depth map.
func (h *Hierarchy) Depths() map[string]int {
	out := make(map[string]int, len(h.depths))
	for k, v := range h.depths {
		out[k] = v
	}
	return out
}

// Parent returns the resolved parent of the named record.
func (h *Hierarchy) Parent(name string) (string, bool) {
	p, ok := h.parents[name]
	return p, ok
}

// Children returns the records whose parent resolved to name.
func (h *Hierarchy) Children(name string) []string {
	return h.children[name]
}

// Orphans returns records whose parent reference matched nothing, in input order.
func (h *Hierarchy) Orphans() []string {
	var out []string
	for _, name := range h.order {
		if h.orphans[name] {
			out = append(out, name)
		}
	}
	return out
}

// Cycles returns one warning per broken cycle.
func (h *Hierarchy) Cycles() []*CycleError {
	return h.cycles
}

// Levels groups record names by ascending depth. Input order is kept within a level.
func (h *Hierarchy) Levels() []Level {
	buckets := make(map[int][]string)
	for _, name := range h.order {
		d := h.depths[name]
		buckets[d] = append(buckets[d], name)
	}

	depths := make([]int, 0, len(buckets))
	for d := range buckets {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	levels := make([]Level, 0, len(depths))
	for _, d := range depths {
		levels = append(levels, Level{Depth: d, Names: buckets[d]})
	}
	return levels
}

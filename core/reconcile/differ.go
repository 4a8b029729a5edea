package reconcile

import (
	"fmt"
	"strings"
)

// Change holds both sides of a differing field.
type Change struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Diff maps each differing field to its source and target values.
type Diff map[Field]Change

// Compare returns the fields of CompareFields that differ between src and tgt.
// Parent references are compared by NormalizedKey; everything else by raw value,
// with absent values equal to "".
func Compare(src, tgt Record) Diff {
	diff := Diff{}
	for _, f := range CompareFields {
		s, t := src.Value(f), tgt.Value(f)
		if f == FieldParent {
			if Normalize(s) != Normalize(t) {
				diff[f] = Change{Source: s, Target: t}
			}
			continue
		}
		if s != t {
			diff[f] = Change{Source: s, Target: t}
		}
	}
	return diff
}

// Empty reports whether the two records were equivalent.
func (d Diff) Empty() bool {
	return len(d) == 0
}

// Fields returns the differing fields in canonical order.
func (d Diff) Fields() []Field {
	fields := make([]Field, 0, len(d))
	for _, f := range CompareFields {
		if _, ok := d[f]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// String renders the diff as "field: source -> target" pairs.
func (d Diff) String() string {
	parts := make([]string, 0, len(d))
	for _, f := range d.Fields() {
		c := d[f]
		parts = append(parts, fmt.Sprintf("%s: %q -> %q", f, c.Target, c.Source))
	}
	return strings.Join(parts, ", ")
}

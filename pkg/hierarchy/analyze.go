package hierarchy

import (
	"fmt"
	"strings"
)

// Orphan is a record whose parent id matches no record.
type Orphan struct {
	ID     string
	Parent string
}

func (o Orphan) String() string {
	return fmt.Sprintf("%q references non-existent parent %q", o.ID, o.Parent)
}

// Analysis describes structural problems in a set of records.
type Analysis struct {
	// Cycles lists every distinct cycle once, as a closed path starting and
	// ending at the member that appears first in the input: [a b a].
	Cycles [][]string

	// Orphans lists records with a dangling parent reference, in input order.
	Orphans []Orphan

	// Duplicates lists ids that appear more than once, in first-seen order.
	Duplicates []string
}

// OK reports whether the records form a forest with unique ids.
func (a Analysis) OK() bool {
	return len(a.Cycles) == 0 && len(a.Orphans) == 0 && len(a.Duplicates) == 0
}

// FormatPath renders a cycle path as "a -> b -> a".
func FormatPath(path []string) string {
	return strings.Join(path, " -> ")
}

// parents maps ids to parent ids. Records without an id are skipped. For
// duplicate ids the last record wins.
func parents[T Item](items []T) map[string]string {
	m := make(map[string]string, len(items))
	for _, it := range items {
		if id := it.ItemID(); id != "" {
			m[id] = it.ParentID()
		}
	}
	return m
}

// FindCycle follows parent links from startID and returns the path up to and
// including the first repeated id, e.g. [c a b a]. It returns nil when the
// chain ends at a root or a dangling reference.
func FindCycle[T Item](items []T, startID string) []string {
	return findCycle(parents(items), startID)
}

func findCycle(parentOf map[string]string, startID string) []string {
	seen := make(map[string]bool)
	var path []string
	for id := startID; id != ""; {
		path = append(path, id)
		if seen[id] {
			return path
		}
		seen[id] = true

		p, ok := parentOf[id]
		if !ok {
			return nil
		}
		id = p
	}
	return nil
}

// Analyze reports cycles, dangling parent references, and duplicate ids.
func Analyze[T Item](items []T) Analysis {
	var a Analysis
	parentOf := parents(items)

	counts := make(map[string]int, len(items))
	for _, it := range items {
		id := it.ItemID()
		if id == "" {
			continue
		}
		counts[id]++
		if counts[id] == 2 {
			a.Duplicates = append(a.Duplicates, id)
		}
	}

	inCycle := make(map[string]bool)
	for _, it := range items {
		id := it.ItemID()
		if id == "" || inCycle[id] {
			continue
		}
		path := findCycle(parentOf, id)
		if path == nil {
			continue
		}

		// Trim the tail leading into the loop: [c a b a] -> [a b a].
		entry := path[len(path)-1]
		start := 0
		for path[start] != entry {
			start++
		}
		loop := path[start:]
		if inCycle[entry] {
			continue
		}
		for _, member := range loop {
			inCycle[member] = true
		}
		a.Cycles = append(a.Cycles, rotate(loop, items))
	}

	for _, it := range items {
		p := it.ParentID()
		if p == "" {
			continue
		}
		if _, ok := parentOf[p]; !ok {
			a.Orphans = append(a.Orphans, Orphan{ID: it.ItemID(), Parent: p})
		}
	}

	return a
}

// rotate re-roots a closed loop [x y z x] so that it starts at whichever
// member occurs first in items.
func rotate[T Item](loop []string, items []T) []string {
	members := loop[:len(loop)-1]
	pos := make(map[string]int, len(members))
	for i, m := range members {
		pos[m] = i
	}

	first := 0
	for _, it := range items {
		if i, ok := pos[it.ItemID()]; ok {
			first = i
			break
		}
	}

	out := make([]string, 0, len(loop))
	for i := range members {
		out = append(out, members[(first+i)%len(members)])
	}
	return append(out, out[0])
}

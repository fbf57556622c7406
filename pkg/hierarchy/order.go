package hierarchy

import "slices"

// Item is a record that may reference a parent record by id. An empty
// ParentID marks a root.
type Item interface {
	ItemID() string
	ParentID() string
}

// Node is a minimal Item, useful when only the ids matter.
type Node struct {
	ID     string
	Parent string
}

func (n Node) ItemID() string   { return n.ID }
func (n Node) ParentID() string { return n.Parent }

// Result is the outcome of ordering a set of records.
type Result[T any] struct {
	// Items is a permutation of the input.
	Items []T

	// Unresolved holds the records that were appended without their parent
	// having been placed first, in the order they were appended. They are also
	// the tail of Items.
	Unresolved []T

	// Passes is the number of scans over the pending records.
	Passes int
}

// Complete reports whether every record was placed after its parent.
func (r Result[T]) Complete() bool {
	return len(r.Unresolved) == 0
}

// Order returns items arranged so that each one follows its parent. Records
// in a cycle, or whose parent can never be placed, are kept and appended at
// the end.
func Order[T Item](items []T) []T {
	return OrderWithReport(items).Items
}

// OrderWithReport is Order, but also reports which records could not be
// resolved.
func OrderWithReport[T Item](items []T) Result[T] {
	return OrderFunc(items,
		func(it T) string { return it.ItemID() },
		func(it T) string { return it.ParentID() },
	)
}

// OrderFunc orders records that do not implement Item, using id and parent
// to read their keys.
func OrderFunc[T any](items []T, id, parent func(T) string) Result[T] {
	var res Result[T]
	res.Items = make([]T, 0, len(items))
	placed := make(map[string]struct{}, len(items))

	pending := slices.Clone(items)
	for len(pending) > 0 {
		res.Passes++

		remaining := make([]T, 0, len(pending))
		for i := len(pending) - 1; i >= 0; i-- {
			it := pending[i]
			p := parent(it)
			if _, ok := placed[p]; p == "" || ok {
				res.Items = append(res.Items, it)
				placed[id(it)] = struct{}{}
				continue
			}
			remaining = append(remaining, it)
		}
		slices.Reverse(remaining)

		if len(remaining) == len(pending) {
			res.Unresolved = remaining
			res.Items = append(res.Items, remaining...)
			break
		}
		pending = remaining
	}

	return res
}

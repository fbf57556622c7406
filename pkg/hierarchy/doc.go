// Package hierarchy orders parent-referencing records so that every record
// is submitted after its parent, and reports on cycles and dangling parents.
//
// # Ordering
//
// Order never fails. It repeatedly scans the records that are still pending
// and places every record whose parent is absent or already placed. When a
// pass places nothing, the remaining records (members of a cycle, or
// descendants of one) are appended in their pending order. The result is
// always a permutation of the input.
//
// Each pass scans the pending records from the last one to the first, so two
// records that become placeable in the same pass come out in reverse input
// order:
//
//	hierarchy.Order([]Node{{ID: "x"}, {ID: "y"}}) // [y x]
//
// # Analysis
//
// Analyze and FindCycle are pure queries over the same records. They do not
// affect ordering; callers use them to surface diagnostics before submitting
// a batch.
package hierarchy

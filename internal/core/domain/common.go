package domain

import "sort"

// LockOrder returns the distinct account numbers in the total order used for
// acquiring exclusive access. Every multi-account operation locks, reads and
// writes in this order regardless of the caller's origin/destination order.
func LockOrder(accountNumbers ...string) []string {
	seen := make(map[string]struct{}, len(accountNumbers))
	ordered := make([]string, 0, len(accountNumbers))
	for _, n := range accountNumbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)
	return ordered
}

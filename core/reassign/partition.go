package reassign

import "github.com/kilianp07/railjobs/core/model"

// Run is a maximal consecutive sequence of items sharing one key.
type Run[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupConsecutive splits items into maximal runs of equal keys. Order is
// preserved and a single differing item breaks a run.
func GroupConsecutive[K comparable, T any](items []T, key func(T) K) []Run[K, T] {
	var runs []Run[K, T]
	for _, it := range items {
		k := key(it)
		if n := len(runs); n > 0 && runs[n-1].Key == k {
			runs[n-1].Items = append(runs[n-1].Items, it)
			continue
		}
		runs = append(runs, Run[K, T]{Key: k, Items: []T{it}})
	}
	return runs
}

// PartitionByStatus splits a consist into runs of equal reassign status.
func (c Classifier) PartitionByStatus(cars []model.Car) []Run[model.ReassignStatus, model.Car] {
	return GroupConsecutive(cars, c.Classify)
}

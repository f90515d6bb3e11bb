// Package tracker implements spec.md §4.5: assigning stable IDs to
// detected points across ticks.
package tracker

import "github.com/zwostein/pointird/internal/types"

// Tracker matches the current tick's points against the previous tick's
// tracked points and assigns each current point an ID — a previous point's
// ID if it's judged to be the same contact, or a freshly allocated one
// otherwise. previousToCurrent and currentToPrevious index into the other
// array, or hold -1 where there is no match.
type Tracker interface {
	AssignIDs(previousPoints *types.PointArray, previousIDs []int, currentPoints *types.PointArray) (currentIDs, previousToCurrent, currentToPrevious []int)
	MaxID() int
}

// idAllocator is the low-water-mark ID pool shared by both Tracker
// implementations, grounded on the `usedIDs`/`getFreeID`/`setFreeID`
// members of Tracker::Simple::Impl and Tracker::Hungarian::Impl
// (original_source/src/pointird/Tracker/{Simple,Hungarian}.cpp): a sorted
// set of in-use IDs, with allocation always taking the first unused gap.
type idAllocator struct {
	used  []int // kept sorted, no duplicates
	maxID int
}

func newIDAllocator(maxID int) *idAllocator {
	return &idAllocator{maxID: maxID}
}

// getFreeID scans the sorted used set for the first gap, matching the
// original's linear scan over a std::set.
func (a *idAllocator) getFreeID() int {
	free := 0
	for _, id := range a.used {
		if free != id {
			break
		}
		free++
	}
	if free < 0 || free > a.maxID {
		return -1
	}
	a.insert(free)
	return free
}

func (a *idAllocator) insert(id int) {
	i := 0
	for i < len(a.used) && a.used[i] < id {
		i++
	}
	if i < len(a.used) && a.used[i] == id {
		return
	}
	a.used = append(a.used, 0)
	copy(a.used[i+1:], a.used[i:])
	a.used[i] = id
}

func (a *idAllocator) setFreeID(id int) {
	for i, v := range a.used {
		if v == id {
			a.used = append(a.used[:i], a.used[i+1:]...)
			return
		}
	}
}

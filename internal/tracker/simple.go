package tracker

import "github.com/zwostein/pointird/internal/types"

// Simple is the greedy nearest-neighbor Tracker, grounded on
// original_source/src/pointird/Tracker/Simple.cpp: every current point
// picks its closest previous point, and when two current points pick the
// same previous point, the one with the larger squared distance loses its
// match and is treated as a new contact.
type Simple struct {
	alloc *idAllocator
}

// NewSimple returns a Simple tracker with the original's default ID cap
// (the full positive range of a 32-bit signed int).
func NewSimple() *Simple {
	return NewSimpleWithMaxID(1<<31 - 1)
}

// NewSimpleWithMaxID returns a Simple tracker whose allocated IDs never
// exceed maxID.
func NewSimpleWithMaxID(maxID int) *Simple {
	return &Simple{alloc: newIDAllocator(maxID)}
}

var _ Tracker = (*Simple)(nil)

func (s *Simple) MaxID() int {
	return s.alloc.maxID
}

func (s *Simple) AssignIDs(previousPoints *types.PointArray, previousIDs []int, currentPoints *types.PointArray) (currentIDs, previousToCurrent, currentToPrevious []int) {
	current := currentPoints.Points
	previous := previousPoints.Points

	distances := make([][]float32, len(current))
	currentToPrevious = make([]int, len(current))
	for i := range current {
		distances[i] = make([]float32, len(previous))
		bestMatch := -1
		for j := range previous {
			d := current[i].SquaredDistance(previous[j])
			distances[i][j] = d
			if bestMatch < 0 || d < distances[i][bestMatch] {
				bestMatch = j
			}
		}
		currentToPrevious[i] = bestMatch
	}

	// collisions: the current point with the larger distance to their
	// shared best match loses it and becomes a new point.
	for a := 0; a < len(currentToPrevious); a++ {
		for b := a + 1; b < len(currentToPrevious); b++ {
			if currentToPrevious[a] < 0 || currentToPrevious[b] < 0 {
				continue
			}
			if currentToPrevious[a] != currentToPrevious[b] {
				continue
			}
			if distances[a][currentToPrevious[a]] <= distances[b][currentToPrevious[b]] {
				currentToPrevious[b] = -1
			} else {
				currentToPrevious[a] = -1
			}
		}
	}

	currentIDs = make([]int, len(current))
	for i := range currentIDs {
		match := currentToPrevious[i]
		if match < 0 || match >= len(previousIDs) {
			currentIDs[i] = s.alloc.getFreeID()
		} else {
			currentIDs[i] = previousIDs[match]
		}
	}

	previousToCurrent = make([]int, len(previous))
	for j := range previousToCurrent {
		previousToCurrent[j] = -1
		for i, match := range currentToPrevious {
			if match == j {
				previousToCurrent[j] = i
				break
			}
		}
		if previousToCurrent[j] < 0 {
			s.alloc.setFreeID(previousIDs[j])
		}
	}

	return currentIDs, previousToCurrent, currentToPrevious
}

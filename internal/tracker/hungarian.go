package tracker

import "github.com/zwostein/pointird/internal/types"

// maxPoints mirrors the original's MAXPOINTS cap
// (original_source/src/pointird/Tracker/Hungarian.cpp): at most this many
// current and previous points are considered; anything beyond it is
// silently ignored rather than grown into, since the cost matrix is
// stack-sized in the original.
const maxPoints = 32

// Hungarian is the optimal-assignment Tracker. It minimizes the total
// squared distance between matched current/previous points instead of
// Simple's greedy nearest-neighbor choice.
//
// The original calls an external `ixoptimal` (borrowed from the mtdev
// project) to solve the assignment; that function's source was not part of
// what could be retrieved here, so this solves the same minimum-cost
// bipartite assignment with a textbook Kuhn-Munkres implementation — an
// equivalent algorithm, per spec.md's "Implementations may use the
// Hungarian method or any algorithm producing the minimum-cost assignment."
type Hungarian struct {
	alloc *idAllocator
}

// NewHungarian returns a Hungarian tracker with the original's default ID
// cap of MAXPOINTS-1.
func NewHungarian() *Hungarian {
	return NewHungarianWithMaxID(maxPoints - 1)
}

// NewHungarianWithMaxID returns a Hungarian tracker whose allocated IDs
// never exceed maxID, clamped to MAXPOINTS-1 like the original.
func NewHungarianWithMaxID(maxID int) *Hungarian {
	if maxID >= maxPoints {
		maxID = maxPoints - 1
	}
	return &Hungarian{alloc: newIDAllocator(maxID)}
}

var _ Tracker = (*Hungarian)(nil)

func (h *Hungarian) MaxID() int {
	return h.alloc.maxID
}

// clamp15 and toDist2 reproduce the original's 15-bit fixed-point squared
// distance: normalized coordinates are assumed to fit within roughly
// [-1, 1], scaled to int16 range before squaring so the whole cost matrix
// fits comfortably in an int.
func clamp15(x int) int {
	if x < -32767 {
		return -32767
	}
	if x > 32767 {
		return 32767
	}
	return x
}

func toDist2(dx, dy float32) int {
	ix := clamp15(int(dx * 32767))
	iy := clamp15(int(dy * 32767))
	return ix*ix + iy*iy
}

func (h *Hungarian) AssignIDs(previousPoints *types.PointArray, previousIDs []int, currentPoints *types.PointArray) (currentIDs, previousToCurrent, currentToPrevious []int) {
	current := currentPoints.Points
	previous := previousPoints.Points

	rows := len(current)
	if rows > maxPoints {
		rows = maxPoints
	}
	cols := len(previous)
	if cols > maxPoints {
		cols = maxPoints
	}

	currentToPrevious = make([]int, len(current))
	for i := range currentToPrevious {
		currentToPrevious[i] = -1
	}

	if rows > 0 && cols > 0 {
		n := rows
		if cols > n {
			n = cols
		}
		cost := make([][]int, n)
		for i := range cost {
			cost[i] = make([]int, n)
			for j := range cost[i] {
				cost[i][j] = dummyCost
			}
		}
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				cost[row][col] = toDist2(current[row].X-previous[col].X, current[row].Y-previous[col].Y)
			}
		}

		assignment := hungarianAssignment(cost)
		for j := 0; j < rows; j++ {
			col := assignment[j]
			if col < cols {
				currentToPrevious[j] = col
			}
		}
	}

	currentIDs = make([]int, len(current))
	for i := range currentIDs {
		if currentToPrevious[i] < 0 || currentToPrevious[i] >= len(previousIDs) {
			currentIDs[i] = h.alloc.getFreeID()
		} else {
			currentIDs[i] = previousIDs[currentToPrevious[i]]
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
			h.alloc.setFreeID(previousIDs[j])
		}
	}

	return currentIDs, previousToCurrent, currentToPrevious
}

// dummyCost is assigned to padding cells when the cost matrix is squared
// up for Kuhn-Munkres. It is far larger than any real toDist2 result
// (bounded by 2*32767^2) so the algorithm only picks a padding cell when
// no real pairing is available, but small enough to avoid overflow in the
// algorithm's potential updates.
const dummyCost = 1 << 40

// hungarianAssignment solves the square minimum-cost bipartite assignment
// problem for an n x n cost matrix using the O(n^3) Kuhn-Munkres primal-dual
// method. Returns, for each row, the column it was assigned to.
func hungarianAssignment(cost [][]int) []int {
	n := len(cost)
	const inf = 1 << 60

	u := make([]int, n+1)
	v := make([]int, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]int, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n+1)
	for j := 1; j <= n; j++ {
		rowToCol[p[j]] = j
	}
	result := make([]int, n)
	for i := 1; i <= n; i++ {
		result[i-1] = rowToCol[i] - 1
	}
	return result
}

package farm

import "container/heap"

// FindPath runs 4-directional A* with a Manhattan heuristic. The returned
// path starts at start and ends at goal. The open set is ordered by
// (f, g, insertion order), so equal inputs always produce the same path.
func FindPath(start, goal Point, blocked PointSet, width, height int) ([]Point, bool) {
	inBounds := func(p Point) bool {
		return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
	}
	if !inBounds(start) || !inBounds(goal) || blocked.Has(goal) {
		return nil, false
	}
	if start == goal {
		return []Point{start}, true
	}

	open := &nodeQueue{}
	seq := 0
	heap.Push(open, &pathNode{p: start, g: 0, f: Manhattan(start, goal), seq: seq})
	gScore := map[Point]int{start: 0}
	cameFrom := map[Point]Point{}
	closed := NewPointSet()

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed.Has(cur.p) {
			continue
		}
		if cur.p == goal {
			return rebuildPath(cameFrom, start, goal), true
		}
		closed.Add(cur.p)

		for _, d := range Neighbors4 {
			next := cur.p.Add(d.X, d.Y)
			if !inBounds(next) || blocked.Has(next) || closed.Has(next) {
				continue
			}
			ng := cur.g + 1
			if old, ok := gScore[next]; ok && ng >= old {
				continue
			}
			gScore[next] = ng
			cameFrom[next] = cur.p
			seq++
			heap.Push(open, &pathNode{p: next, g: ng, f: ng + Manhattan(next, goal), seq: seq})
		}
	}
	return nil, false
}

func rebuildPath(cameFrom map[Point]Point, start, goal Point) []Point {
	path := []Point{goal}
	for cur := goal; cur != start; {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pathNode struct {
	p   Point
	g   int
	f   int
	seq int
}

type nodeQueue []*pathNode

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g > q[j].g
	}
	return q[i].seq < q[j].seq
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(*pathNode)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

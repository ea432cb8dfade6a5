package avl

// Stats holds structural counters of a tree.
type Stats struct {
	Len             int
	Height          int
	Nodes           int   // Allocated arena slots.
	SingleRotations int64 // Rebalances resolved with one rotation.
	DoubleRotations int64 // Rebalances that needed a rotation at the heavy child first.
}

// Rotations returns the total number of rebalancing events.
func (s Stats) Rotations() int64 {
	return s.SingleRotations + s.DoubleRotations
}

// Stats returns current structural counters.
func (tree *Tree[K, V]) Stats() Stats {
	return Stats{
		Len:             tree.count,
		Height:          tree.Height(),
		Nodes:           tree.nodes.used(),
		SingleRotations: tree.singleRotations,
		DoubleRotations: tree.doubleRotations,
	}
}

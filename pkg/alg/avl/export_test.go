package avl

import (
	"errors"
	"fmt"
)

var (
	errOrder   = errors.New("bst order violated")
	errHeight  = errors.New("cached height is stale")
	errBalance = errors.New("avl balance violated")
	errCount   = errors.New("count mismatch")
)

// validate walks the whole tree and checks ordering, cached heights, balance
// factors and the entry count.
func (tree *Tree[K, V]) validate() error {
	seen := 0

	_, err := tree.validateNode(tree.root, nil, nil, &seen)
	if err != nil {
		return err
	}

	if seen != tree.count || tree.nodes.used() != tree.count {
		return fmt.Errorf("%w: walked %d, count %d, arena %d", errCount, seen, tree.count, tree.nodes.used())
	}

	return nil
}

func (tree *Tree[K, V]) validateNode(idx uint32, lower, upper *K, seen *int) (int32, error) {
	if idx == absent {
		return absentHeight, nil
	}

	*seen++

	nd := tree.nodes.at(idx)

	if lower != nil && tree.compare(nd.key, *lower) <= 0 {
		return 0, fmt.Errorf("%w: key %v not above %v", errOrder, nd.key, *lower)
	}

	if upper != nil && tree.compare(nd.key, *upper) >= 0 {
		return 0, fmt.Errorf("%w: key %v not below %v", errOrder, nd.key, *upper)
	}

	leftHeight, err := tree.validateNode(nd.left, lower, &nd.key, seen)
	if err != nil {
		return 0, err
	}

	rightHeight, err := tree.validateNode(nd.right, &nd.key, upper, seen)
	if err != nil {
		return 0, err
	}

	if want := 1 + max(leftHeight, rightHeight); nd.height != want {
		return 0, fmt.Errorf("%w: key %v has %d, want %d", errHeight, nd.key, nd.height, want)
	}

	if diff := rightHeight - leftHeight; diff > 1 || diff < -1 {
		return 0, fmt.Errorf("%w: key %v has factor %d", errBalance, nd.key, diff)
	}

	return nd.height, nil
}

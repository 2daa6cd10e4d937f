package treemath_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sealedstate/internal/protocol/treemath"
)

func TestLevelsAndChildren(t *testing.T) {
	require.Equal(t, uint32(0), treemath.Level(4))
	require.Equal(t, uint32(1), treemath.Level(5))
	require.Equal(t, uint32(2), treemath.Level(3))
	require.Equal(t, uint32(3), treemath.Level(7))

	require.Equal(t, uint32(1), treemath.Left(3))
	require.Equal(t, uint32(5), treemath.Right(3))
	require.Equal(t, uint32(3), treemath.Left(7))
	require.Equal(t, uint32(11), treemath.Right(7))
}

func TestParentSibling(t *testing.T) {
	// 4 leaves: nodes 0..6, root 3.
	require.Equal(t, uint32(1), treemath.Parent(0))
	require.Equal(t, uint32(1), treemath.Parent(2))
	require.Equal(t, uint32(5), treemath.Parent(4))
	require.Equal(t, uint32(3), treemath.Parent(1))
	require.Equal(t, uint32(3), treemath.Parent(5))

	require.Equal(t, uint32(2), treemath.Sibling(0))
	require.Equal(t, uint32(5), treemath.Sibling(1))
	require.Equal(t, uint32(4), treemath.Sibling(6))
}

func TestDirectPathAndCopath(t *testing.T) {
	require.Equal(t, []uint32{5, 3}, treemath.DirectPath(4, 4))
	require.Equal(t, []uint32{6, 1}, treemath.Copath(4, 4))
	require.Empty(t, treemath.DirectPath(0, 1))

	// After doubling, the old root 3 hangs under the new root 7.
	require.Equal(t, []uint32{5, 3, 7}, treemath.DirectPath(4, 8))
	require.Equal(t, uint32(7), treemath.Parent(3))
	require.Equal(t, uint32(11), treemath.Sibling(3))
}

func TestCapacity(t *testing.T) {
	cases := map[uint32]uint32{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 9: 16}
	for n, want := range cases {
		require.Equal(t, want, treemath.CapacityFor(n), "n=%d", n)
	}
	require.Equal(t, uint32(7), treemath.NodeWidth(4))
	require.Equal(t, uint32(3), treemath.Root(4))
}

func TestAncestor(t *testing.T) {
	require.Equal(t, uint32(1), treemath.Ancestor(0, 2))
	require.Equal(t, uint32(3), treemath.Ancestor(0, 4))
	require.Equal(t, uint32(7), treemath.Ancestor(2, 12))
	require.Equal(t, uint32(5), treemath.Ancestor(4, 6))
	require.Equal(t, uint32(6), treemath.Ancestor(6, 6))
}

func TestInSubtree(t *testing.T) {
	require.True(t, treemath.InSubtree(4, 5))
	require.True(t, treemath.InSubtree(6, 5))
	require.False(t, treemath.InSubtree(2, 5))
	require.True(t, treemath.InSubtree(12, 7))
	require.True(t, treemath.InSubtree(3, 3))
}

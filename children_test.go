package svfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChildren_AddChildThenLoadRoundTrips(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())

	child := &Inode{ID: 5, Name: "child", Blocks: 1, StartBlock: 1}
	e.index.byID[child.ID] = child

	require.NoError(t, e.addChild(e.root, child))
	require.EqualValues(t, 1, e.root.ChildrenCount)

	loaded, err := e.loadChildren(e.root)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "child", loaded[0].Name)
}

func TestChildren_RemoveChildRepacksRemaining(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())

	for i, name := range []string{"a", "b", "c"} {
		child := &Inode{ID: uint32(10 + i), Name: name, Blocks: 1, StartBlock: uint32(1 + i)}
		e.index.byID[child.ID] = child
		require.NoError(t, e.addChild(e.root, child))
	}

	require.NoError(t, e.removeChildByName(e.root, "b"))
	require.EqualValues(t, 2, e.root.ChildrenCount)

	remaining, err := e.loadChildren(e.root)
	require.NoError(t, err)
	names := []string{remaining[0].Name, remaining[1].Name}
	require.Equal(t, []string{"a", "c"}, names)
}

func TestChildren_RemoveMissingNameFails(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	err := e.removeChildByName(e.root, "nope")
	require.Error(t, err)
}

func TestChildren_AddChildRealignsWhenParentRunIsFull(t *testing.T) {
	// Block size 32 holds 8 child ids (4 bytes each); the 9th forces realign.
	e := newTestEngine(t, scenarioGeometry())

	for i := 0; i < 8; i++ {
		child := &Inode{ID: uint32(100 + i), Name: "c", Blocks: 1, StartBlock: uint32(10 + i)}
		e.index.byID[child.ID] = child
		require.NoError(t, e.addChild(e.root, child))
	}
	require.EqualValues(t, 1, e.root.Blocks)

	overflow := &Inode{ID: 200, Name: "overflow", Blocks: 1, StartBlock: 50}
	e.index.byID[overflow.ID] = overflow
	require.NoError(t, e.addChild(e.root, overflow))

	require.Greater(t, e.root.Blocks, uint32(1))
	loaded, err := e.loadChildren(e.root)
	require.NoError(t, err)
	require.Len(t, loaded, 9)
}

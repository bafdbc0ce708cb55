package svfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRealign_FilePayloadPaddedToNewRunFullLength(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())

	data := make([]byte, 64) // 2 blocks
	for i := range data {
		data[i] = byte(i + 1)
	}
	_, err := e.CreateFile("/root/f", data)
	require.NoError(t, err)

	_, node, err := e.resolvePath("/root/f", true)
	require.NoError(t, err)
	oldBlocks := node.Blocks

	require.NoError(t, e.realign(node, 4))
	require.Equal(t, oldBlocks*4, node.Blocks)

	raw, err := e.readRawBlocks(node)
	require.NoError(t, err)
	require.Len(t, raw, int(node.Blocks)*int(e.layout.BlockSize))

	// Original bytes preserved at the front, the rest zero-padded out to the
	// entire new run, not just one block.
	require.True(t, bytes.Equal(raw[:len(data)], data))
	for _, b := range raw[len(data):] {
		require.Zero(t, b)
	}
}

func TestRealign_DirectoryPayloadPreservesChildren(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())

	_, err := e.CreateDirectory("/root/d")
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		_, err := e.CreateFile("/root/d/"+string(rune('a'+i)), []byte("x"))
		require.NoError(t, err)
	}

	_, node, err := e.resolvePath("/root/d", true)
	require.NoError(t, err)
	require.Greater(t, node.Blocks, uint32(1), "expected realignment to have grown the directory")

	children, err := e.loadChildren(node)
	require.NoError(t, err)
	require.Len(t, children, 9)
}

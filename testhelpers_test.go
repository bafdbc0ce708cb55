package svfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// scenarioGeometry is the one geometry shared by the engine-level tests:
// 32-byte blocks, a 1 MiB index, an 80 MiB data region, 32-byte names.
func scenarioGeometry() Geometry {
	return Geometry{BlockSize: 32, IndexSize: 1048576, ImageSize: 83886080, NameSize: 32}
}

// newTestEngine builds a blank in-memory image for g and opens an Engine
// on top of it, the way testing.OpenBlankEngine does for external callers;
// this internal copy avoids an import cycle (this package's own tests can't
// import svfs/testing, since that package imports svfs).
func newTestEngine(t *testing.T, g Geometry) *Engine {
	t.Helper()
	layout, err := NewLayout(g)
	require.NoError(t, err)

	total := int(layout.BitmapSize) + int(layout.IndexSize) + int(layout.ImageSize)
	buf := make([]byte, total)
	image := bytesextra.NewReadWriteSeeker(buf)

	e, err := OpenImage(image, g, nil)
	require.NoError(t, err)
	return e
}

// Package testing provides helpers for building in-memory disk images for
// svfs tests, without touching the real filesystem.
package testing

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/svfs"
)

// NewBlankImage allocates a zero-filled in-memory buffer sized for g and
// wraps it as an io.ReadWriteSeeker, ready to pass to svfs.OpenImage.
func NewBlankImage(t *testing.T, g svfs.Geometry) io.ReadWriteSeeker {
	layout, err := svfs.NewLayout(g)
	require.NoError(t, err)

	total := int(layout.BitmapSize) + int(layout.IndexSize) + int(layout.ImageSize)
	buf := make([]byte, total)
	return bytesextra.NewReadWriteSeeker(buf)
}

// OpenBlankEngine is a one-call convenience that builds a blank image for g
// and opens it as an Engine.
func OpenBlankEngine(t *testing.T, g svfs.Geometry) *svfs.Engine {
	image := NewBlankImage(t, g)
	e, err := svfs.OpenImage(image, g, nil)
	require.NoError(t, err)
	return e
}

package svfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	vfserrors "github.com/dargueta/svfs/errors"
)

func TestMetadata_NewMetadataWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "image.dat")

	g := Geometry{BlockSize: 32, IndexSize: 1024, ImageSize: 4096, NameSize: 16}
	_, err := newMetadata(imagePath, g)
	require.NoError(t, err)

	raw, err := os.ReadFile(sidecarPathFor(imagePath))
	require.NoError(t, err)
	require.Contains(t, string(raw), imagePath)
}

func TestMetadata_LoadMissingSidecarFails(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "image.dat")

	_, err := loadMetadata(imagePath)
	require.ErrorIs(t, err, vfserrors.ErrMetadataMissing)
}

func TestMetadata_NextIDIncrementsAndPersists(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "image.dat")

	g := Geometry{BlockSize: 32, IndexSize: 1024, ImageSize: 4096, NameSize: 16}
	m, err := newMetadata(imagePath, g)
	require.NoError(t, err)

	id1, err := m.nextID()
	require.NoError(t, err)
	require.EqualValues(t, 1, id1)

	id2, err := m.nextID()
	require.NoError(t, err)
	require.EqualValues(t, 2, id2)

	reloaded, err := loadMetadata(imagePath)
	require.NoError(t, err)
	require.EqualValues(t, 2, reloaded.record.CurrentID)
}

func TestMetadata_GeometryRoundTrips(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "image.dat")

	g := Geometry{BlockSize: 64, IndexSize: 2048, ImageSize: 8192, NameSize: 24}
	m, err := newMetadata(imagePath, g)
	require.NoError(t, err)

	require.Equal(t, g, m.geometry())
}

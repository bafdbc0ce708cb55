package svfs

import (
	"bytes"
	"os"

	"github.com/gocarina/gocsv"

	vfserrors "github.com/dargueta/svfs/errors"
)

// sidecarRecord is the single positional CSV record stored in an image's
// `<image>.dt` sidecar file. Field order is significant: gocsv's headerless
// mode reads and writes columns in declaration order.
type sidecarRecord struct {
	Path      string `csv:"file_system_path"`
	IndexSize uint32 `csv:"file_index_size"`
	BlockSize uint32 `csv:"block_size"`
	ImageSize uint32 `csv:"file_system_size"`
	NameSize  uint32 `csv:"file_name_size"`
	CurrentID uint32 `csv:"current_id"`
}

// metadata owns the sidecar file's contents and keeps the id counter
// persisted across opens.
type metadata struct {
	sidecarPath string
	record      sidecarRecord
}

func sidecarPathFor(imagePath string) string {
	return imagePath + ".dt"
}

// loadMetadata reads an existing sidecar file.
func loadMetadata(imagePath string) (*metadata, error) {
	path := sidecarPathFor(imagePath)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vfserrors.ErrMetadataMissing.WithMessage(path)
		}
		return nil, err
	}

	var records []sidecarRecord
	if err := gocsv.UnmarshalWithoutHeaders(bytes.NewReader(raw), &records); err != nil {
		return nil, vfserrors.ErrCorruption.Wrap(err)
	}
	if len(records) != 1 {
		return nil, vfserrors.ErrCorruption.WithMessage("sidecar does not contain exactly one record")
	}

	return &metadata{sidecarPath: path, record: records[0]}, nil
}

// newMetadata creates a fresh sidecar record for a brand-new image and
// writes it immediately.
func newMetadata(imagePath string, g Geometry) (*metadata, error) {
	m := &metadata{
		sidecarPath: sidecarPathFor(imagePath),
		record: sidecarRecord{
			Path:      imagePath,
			IndexSize: g.IndexSize,
			BlockSize: g.BlockSize,
			ImageSize: g.ImageSize,
			NameSize:  g.NameSize,
			CurrentID: 0,
		},
	}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metadata) geometry() Geometry {
	return Geometry{
		BlockSize: m.record.BlockSize,
		IndexSize: m.record.IndexSize,
		ImageSize: m.record.ImageSize,
		NameSize:  m.record.NameSize,
	}
}

// save rewrites the sidecar file. A metadata with no sidecarPath (built by
// OpenImage for an in-memory image with no backing file) has nothing to
// rewrite and is a no-op, consistent with OpenImage's doc comment that it
// skips the sidecar entirely.
func (m *metadata) save() error {
	if m.sidecarPath == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := gocsv.MarshalWithoutHeaders([]sidecarRecord{m.record}, &buf); err != nil {
		return err
	}
	return os.WriteFile(m.sidecarPath, buf.Bytes(), 0o644)
}

// nextID increments the id counter and rewrites the sidecar before handing
// the id out, so a crash can skip ids but never reuse one. Id 0 is reserved
// for the root directory, so the first call returns 1.
func (m *metadata) nextID() (uint32, error) {
	m.record.CurrentID++
	if err := m.save(); err != nil {
		m.record.CurrentID--
		return 0, err
	}
	return m.record.CurrentID, nil
}

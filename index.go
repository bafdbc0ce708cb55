package svfs

import (
	"io"

	vfserrors "github.com/dargueta/svfs/errors"
)

// syncer is implemented by backing stores (notably *os.File) that support an
// explicit flush. Images that don't (e.g. an in-memory bytesextra buffer in
// tests) simply skip the flush.
type syncer interface {
	Sync() error
}

func flushImage(image io.ReadWriteSeeker) error {
	if s, ok := image.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// indexManager owns the fixed-width inode table: reading it in at open time,
// finding free slots, and keeping an in-memory id -> slot map so repeated
// lookups don't rescan the whole table.
type indexManager struct {
	image  io.ReadWriteSeeker
	layout Layout

	byID   map[uint32]*Inode
	slotOf map[uint32]uint32
}

func loadIndexManager(image io.ReadWriteSeeker, layout Layout) (*indexManager, error) {
	im := &indexManager{
		image:  image,
		layout: layout,
		byID:   make(map[uint32]*Inode),
		slotOf: make(map[uint32]uint32),
	}

	buf := make([]byte, layout.IndexEntrySize)
	for slot := uint32(0); slot < layout.MaxIndexEntries; slot++ {
		if _, err := image.Seek(layout.IndexOffset(slot), io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(image, buf); err != nil {
			return nil, err
		}
		if isZeroEntry(buf) {
			continue
		}
		node, err := decodeInode(buf, layout)
		if err != nil {
			return nil, err
		}
		n := node
		im.byID[n.ID] = &n
		im.slotOf[n.ID] = slot
	}

	return im, nil
}

func (im *indexManager) findFreeSlot() (uint32, error) {
	buf := make([]byte, im.layout.IndexEntrySize)
	for slot := uint32(0); slot < im.layout.MaxIndexEntries; slot++ {
		if _, err := im.image.Seek(im.layout.IndexOffset(slot), io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := io.ReadFull(im.image, buf); err != nil {
			return 0, err
		}
		if isZeroEntry(buf) {
			return slot, nil
		}
	}
	return 0, vfserrors.ErrNoIndexSpace.WithMessage("inode table is full")
}

// write persists node to its existing slot, or claims the first free slot if
// this is a new inode. It stamps modifiedAt on the way in.
func (im *indexManager) write(node *Inode, modifiedAt uint32) error {
	node.ModifiedAt = modifiedAt

	slot, exists := im.slotOf[node.ID]
	if !exists {
		free, err := im.findFreeSlot()
		if err != nil {
			return err
		}
		slot = free
	}

	buf, err := node.encode(im.layout)
	if err != nil {
		return err
	}
	if _, err := im.image.Seek(im.layout.IndexOffset(slot), io.SeekStart); err != nil {
		return err
	}
	if _, err := im.image.Write(buf); err != nil {
		return err
	}
	if err := flushImage(im.image); err != nil {
		return err
	}

	im.byID[node.ID] = node
	im.slotOf[node.ID] = slot
	return nil
}

// delete zeroes out node's slot. Deleting an id that isn't present is a
// no-op, so rollback paths can call it without tracking whether the write
// it undoes ever ran.
func (im *indexManager) delete(id uint32) error {
	slot, exists := im.slotOf[id]
	if !exists {
		return nil
	}

	zero := make([]byte, im.layout.IndexEntrySize)
	if _, err := im.image.Seek(im.layout.IndexOffset(slot), io.SeekStart); err != nil {
		return err
	}
	if _, err := im.image.Write(zero); err != nil {
		return err
	}
	if err := flushImage(im.image); err != nil {
		return err
	}

	delete(im.byID, id)
	delete(im.slotOf, id)
	return nil
}

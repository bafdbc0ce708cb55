package svfs

import (
	"encoding/binary"
	"io"

	vfserrors "github.com/dargueta/svfs/errors"
)

// A directory's data blocks hold nothing but a packed array of its
// children's 4-byte big-endian inode ids, one after another, no padding
// between entries. Inode.ChildrenCount says how many are valid; the rest of
// the directory's allocated space (if any) is unused until the next
// realignment grows it.

func (e *Engine) loadChildren(node *Inode) ([]*Inode, error) {
	if !node.IsDirectory {
		return nil, nil
	}
	if node.ChildrenCount == 0 {
		return nil, nil
	}

	offset := e.layout.DataOffset(node.StartBlock)
	buf := make([]byte, 4*node.ChildrenCount)
	if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(e.image, buf); err != nil {
		return nil, err
	}

	children := make([]*Inode, 0, node.ChildrenCount)
	for i := uint32(0); i < node.ChildrenCount; i++ {
		id := binary.BigEndian.Uint32(buf[i*4 : i*4+4])
		child, ok := e.index.byID[id]
		if !ok {
			return nil, vfserrors.ErrCorruption.WithMessage("directory references unknown inode id")
		}
		children = append(children, child)
	}
	return children, nil
}

// childListCapacity returns how many child ids fit in node's currently
// allocated blocks.
func childListCapacity(layout Layout, node *Inode) uint32 {
	return (node.Blocks * layout.BlockSize) / 4
}

// addChild appends child's id to parent's packed child list, realigning
// parent first if its current allocation has no room left.
func (e *Engine) addChild(parent *Inode, child *Inode) error {
	if parent.ChildrenCount+1 > childListCapacity(e.layout, parent) {
		factor := uint32(2)
		if err := e.realign(parent, factor); err != nil {
			return err
		}
	}

	offset := e.layout.DataOffset(parent.StartBlock) + int64(4*parent.ChildrenCount)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], child.ID)
	if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := e.image.Write(buf[:]); err != nil {
		return err
	}
	parent.ChildrenCount++
	return nil
}

// removeChildByName repacks parent's child list with the named child
// removed, shifting every following entry left by one slot.
func (e *Engine) removeChildByName(parent *Inode, name string) error {
	children, err := e.loadChildren(parent)
	if err != nil {
		return err
	}

	idx := -1
	for i, c := range children {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return vfserrors.ErrNotFound.WithMessage(name)
	}

	remaining := append(children[:idx:idx], children[idx+1:]...)
	buf := make([]byte, 4*len(remaining))
	for i, c := range remaining {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], c.ID)
	}

	offset := e.layout.DataOffset(parent.StartBlock)
	if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := e.image.Write(buf); err != nil {
		return err
	}
	parent.ChildrenCount = uint32(len(remaining))
	return nil
}

package svfs

import (
	"io"
)

// realign grows (or, in principle, relocates) an inode's block run to
// current_blocks * factor blocks: it reads the inode's payload, frees its
// old range, finds a new contiguous run big enough, and writes the payload
// back padded to the entire new run, then updates start_block/blocks.
// Padding to anything shorter than the full run would truncate multi-block
// files on growth.
func (e *Engine) realign(node *Inode, factor uint32) error {
	if factor < 2 {
		factor = 2
	}

	payload, err := e.readRawPayload(node)
	if err != nil {
		return err
	}

	oldStart := BlockID(node.StartBlock)
	oldBlocks := node.Blocks

	if err := e.allocator.FreeRange(oldStart, oldBlocks); err != nil {
		return err
	}

	newBlocks := oldBlocks * factor
	newStart, err := e.allocator.FindFreeRun(newBlocks)
	if err != nil {
		// Put the old range back so the image isn't left with dangling
		// allocated-but-unreferenced blocks after a failed realign.
		_ = e.allocator.MarkRange(oldStart, oldBlocks)
		return err
	}

	padded := make([]byte, uint64(newBlocks)*uint64(e.layout.BlockSize))
	copy(padded, payload)

	if err := e.writeRawAt(newStart, padded); err != nil {
		return err
	}
	if err := e.allocator.MarkRange(newStart, newBlocks); err != nil {
		return err
	}

	node.StartBlock = uint32(newStart)
	node.Blocks = newBlocks
	return nil
}

// readRawPayload returns a node's live bytes: for a file, its full block
// range; for a directory, its packed child-id list (not padded with the
// unused tail of its allocation).
func (e *Engine) readRawPayload(node *Inode) ([]byte, error) {
	if node.IsDirectory {
		buf := make([]byte, 4*node.ChildrenCount)
		offset := e.layout.DataOffset(node.StartBlock)
		if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(e.image, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return e.readRawBlocks(node)
}

func (e *Engine) readRawBlocks(node *Inode) ([]byte, error) {
	offset := e.layout.DataOffset(node.StartBlock)
	buf := make([]byte, uint64(node.Blocks)*uint64(e.layout.BlockSize))
	if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(e.image, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *Engine) writeRawAt(start BlockID, data []byte) error {
	offset := e.layout.DataOffset(uint32(start))
	if _, err := e.image.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := e.image.Write(data)
	return err
}

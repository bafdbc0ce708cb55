package svfs

import (
	"io"

	bm "github.com/boljen/go-bitmap"

	vfserrors "github.com/dargueta/svfs/errors"
)

// BlockID identifies a data block by its index from the start of the data
// region (block 0 is the first block after the bitmap and index table).
type BlockID uint32

// bitmapAllocator tracks which blocks are in use via a bitmap mirrored in
// memory. Mutations write the individual changed bytes back to the head of
// the image rather than rewriting the whole map.
type bitmapAllocator struct {
	bits        bm.Bitmap
	image       io.ReadWriteSeeker
	totalBlocks uint32
}

func loadBitmapAllocator(image io.ReadWriteSeeker, bitmapSize, totalBlocks uint32) (*bitmapAllocator, error) {
	buf := make([]byte, bitmapSize)
	if _, err := image.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(image, buf); err != nil {
		return nil, err
	}
	return &bitmapAllocator{bits: bm.Bitmap(buf), image: image, totalBlocks: totalBlocks}, nil
}

// FindFreeRun performs a first-fit linear scan for `n` contiguous free
// blocks and returns the start of the run.
func (a *bitmapAllocator) FindFreeRun(n uint32) (BlockID, error) {
	if n == 0 {
		n = 1
	}

	var runStart uint32
	var runLen uint32
	for i := uint32(0); i < a.totalBlocks; i++ {
		if a.bits.Get(int(i)) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		if runLen == n {
			return BlockID(runStart), nil
		}
	}
	return 0, vfserrors.ErrOutOfSpace.WithMessage("no contiguous free run large enough")
}

func (a *bitmapAllocator) persistByte(block uint32) error {
	byteIndex := int64(block / 8)
	if _, err := a.image.Seek(byteIndex, io.SeekStart); err != nil {
		return err
	}
	_, err := a.image.Write([]byte{a.bits[byteIndex]})
	return err
}

// Mark marks a single block used and persists the changed byte.
func (a *bitmapAllocator) Mark(block BlockID) error {
	a.bits.Set(int(block), true)
	return a.persistByte(uint32(block))
}

// Free marks a single block free and persists the changed byte.
func (a *bitmapAllocator) Free(block BlockID) error {
	a.bits.Set(int(block), false)
	return a.persistByte(uint32(block))
}

// MarkRange marks n consecutive blocks starting at base used.
func (a *bitmapAllocator) MarkRange(base BlockID, n uint32) error {
	for i := uint32(0); i < n; i++ {
		if err := a.Mark(BlockID(uint32(base) + i)); err != nil {
			return err
		}
	}
	return nil
}

// FreeRange marks n consecutive blocks starting at base free.
func (a *bitmapAllocator) FreeRange(base BlockID, n uint32) error {
	for i := uint32(0); i < n; i++ {
		if err := a.Free(BlockID(uint32(base) + i)); err != nil {
			return err
		}
	}
	return nil
}

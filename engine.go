package svfs

import (
	"bytes"
	"io"
	"log"
	"os"

	vfserrors "github.com/dargueta/svfs/errors"
)

// Engine is the single entry point into a disk image: one Engine owns one
// open image file, its sidecar metadata, its bitmap allocator, its inode
// index, and the transaction manager every mutating operation stages its
// steps through.
type Engine struct {
	imagePath string
	image     io.ReadWriteSeeker
	closer    io.Closer
	layout    Layout
	metadata  *metadata
	allocator *bitmapAllocator
	index     *indexManager
	tx        *transaction
	root      *Inode
	logger    *log.Logger
	closed    bool
}

// Open opens an existing image, or formats a new one if specs is non-nil and
// no image/sidecar exists yet at imagePath. logger may be nil.
func Open(imagePath string, specs *Geometry, logger *log.Logger) (*Engine, error) {
	md, fresh, err := openOrCreateMetadata(imagePath, specs)
	if err != nil {
		return nil, err
	}

	layout, err := NewLayout(md.geometry())
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fresh || info.Size() == 0 {
		if err := reserveImage(f, layout); err != nil {
			f.Close()
			return nil, err
		}
	}

	e, err := newEngine(imagePath, f, f, layout, md, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

// OpenImage builds an Engine directly on top of an already-sized,
// zero-filled in-memory image (e.g. from bytesextra.NewReadWriteSeeker),
// skipping the sidecar file and real filesystem entirely. Used by tests; see
// testing/images.go.
func OpenImage(image io.ReadWriteSeeker, g Geometry, logger *log.Logger) (*Engine, error) {
	layout, err := NewLayout(g)
	if err != nil {
		return nil, err
	}
	md := &metadata{record: sidecarRecord{
		IndexSize: g.IndexSize,
		BlockSize: g.BlockSize,
		ImageSize: g.ImageSize,
		NameSize:  g.NameSize,
	}}
	return newEngine("", image, nil, layout, md, logger)
}

func newEngine(
	imagePath string,
	image io.ReadWriteSeeker,
	closer io.Closer,
	layout Layout,
	md *metadata,
	logger *log.Logger,
) (*Engine, error) {
	allocator, err := loadBitmapAllocator(image, layout.BitmapSize, layout.NumBlocks)
	if err != nil {
		return nil, err
	}

	idx, err := loadIndexManager(image, layout)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		imagePath: imagePath,
		image:     image,
		closer:    closer,
		layout:    layout,
		metadata:  md,
		allocator: allocator,
		index:     idx,
		logger:    logger,
	}
	e.tx = newTransaction(logger)

	root, ok := idx.byID[0]
	if !ok {
		now := currentEpoch()
		root = &Inode{ID: 0, Name: "root", IsDirectory: true, StartBlock: 0, Blocks: 1, CreatedAt: now, ModifiedAt: now}
		if err := allocator.Mark(0); err != nil {
			return nil, err
		}
		if err := e.writeRawAt(0, make([]byte, layout.BlockSize)); err != nil {
			return nil, err
		}
		if err := idx.write(root, now); err != nil {
			return nil, err
		}
	}
	e.root = root

	return e, nil
}

// openOrCreateMetadata loads an existing sidecar, or creates one from specs
// if none exists. fresh reports whether a new sidecar (and therefore a new
// image) was created.
func openOrCreateMetadata(imagePath string, specs *Geometry) (md *metadata, fresh bool, err error) {
	md, err = loadMetadata(imagePath)
	if err == nil {
		return md, false, nil
	}
	if specs == nil {
		return nil, false, err
	}

	md, err = newMetadata(imagePath, *specs)
	if err != nil {
		return nil, false, err
	}
	return md, true, nil
}

// reserveImage grows the image file to its full configured size by writing
// a single zero byte at the last offset, the way sparse-file preallocation
// usually works; everything in between reads back as zero until written.
func reserveImage(f *os.File, layout Layout) error {
	total := int64(layout.BitmapSize) + int64(layout.IndexSize) + int64(layout.ImageSize)
	if total == 0 {
		return nil
	}
	if _, err := f.WriteAt([]byte{0}, total-1); err != nil {
		return err
	}
	return f.Sync()
}

func (e *Engine) checkOpen() error {
	if e.closed {
		return vfserrors.ErrClosed
	}
	return nil
}

// Close flushes and releases the underlying image file. It is safe to call
// more than once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Files

// CreateFile allocates a new file inode under the resolved parent directory
// and writes data into it in one transaction.
func (e *Engine) CreateFile(fullPath string, data []byte) (*Inode, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	dir, name := splitLastComponent(fullPath)
	_, parent, err := e.resolvePath(dir, false)
	if err != nil {
		return nil, err
	}
	if !parent.IsDirectory {
		return nil, vfserrors.ErrNotADirectory.WithMessage(dir)
	}
	if _, exists := e.findChildName(parent, name); exists {
		return nil, vfserrors.ErrAlreadyExists.WithMessage(fullPath)
	}

	n := blocksNeeded(len(data), e.layout.BlockSize)
	start, err := e.allocator.FindFreeRun(n)
	if err != nil {
		return nil, err
	}

	id, err := e.metadata.nextID()
	if err != nil {
		return nil, err
	}

	now := currentEpoch()
	node := &Inode{ID: id, Name: name, StartBlock: uint32(start), Blocks: n, CreatedAt: now, ModifiedAt: now}

	e.tx.add(
		func() error { return e.allocator.MarkRange(start, n) },
		func() error { return e.allocator.FreeRange(start, n) },
	)
	e.tx.add(
		func() error { return e.writeRawAt(start, padTo(data, uint64(n)*uint64(e.layout.BlockSize))) },
		nil,
	)
	e.tx.add(
		func() error { return e.addChild(parent, node) },
		func() error { return e.removeChildByName(parent, node.Name) },
	)
	e.tx.add(
		func() error { return e.index.write(node, now) },
		func() error { return e.index.delete(node.ID) },
	)
	e.tx.add(
		func() error { return e.index.write(parent, now) },
		func() error { return e.index.delete(parent.ID) },
	)

	if err := e.tx.commit(); err != nil {
		return nil, err
	}
	return node, nil
}

// ReadFile returns a file's logical contents: its full block range with
// trailing NUL padding trimmed off.
func (e *Engine) ReadFile(fullPath string) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	_, node, err := e.resolvePath(fullPath, true)
	if err != nil {
		return nil, err
	}
	if node.IsDirectory {
		return nil, vfserrors.ErrIsADirectory.WithMessage(fullPath)
	}
	raw, err := e.readRawBlocks(node)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(raw, "\x00"), nil
}

// EditFile overwrites a file's contents in place, realigning (growing) its
// block run first if the new data doesn't fit in the blocks it already has.
func (e *Engine) EditFile(fullPath string, data []byte) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	_, node, err := e.resolvePath(fullPath, true)
	if err != nil {
		return err
	}
	if node.IsDirectory {
		return vfserrors.ErrIsADirectory.WithMessage(fullPath)
	}

	need := blocksNeeded(len(data), e.layout.BlockSize)
	if need > node.Blocks {
		factor := (need + node.Blocks - 1) / node.Blocks
		if err := e.realign(node, factor); err != nil {
			return err
		}
	}

	if err := e.writeRawAt(BlockID(node.StartBlock), padTo(data, uint64(node.Blocks)*uint64(e.layout.BlockSize))); err != nil {
		return err
	}
	return e.index.write(node, currentEpoch())
}

// DeleteFile frees a file's blocks, unlinks it from its parent, and removes
// it from the index, all in one transaction.
func (e *Engine) DeleteFile(fullPath string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	parent, node, err := e.resolvePath(fullPath, true)
	if err != nil {
		return err
	}
	if node.IsDirectory {
		return vfserrors.ErrIsADirectory.WithMessage(fullPath)
	}

	return e.stageDeleteLeaf(parent, node)
}

func (e *Engine) stageDeleteLeaf(parent, node *Inode) error {
	start := BlockID(node.StartBlock)
	n := node.Blocks
	name := node.Name
	id := node.ID
	now := currentEpoch()

	e.tx.add(
		func() error { return e.allocator.FreeRange(start, n) },
		func() error { return e.allocator.MarkRange(start, n) },
	)
	e.tx.add(
		func() error { return e.removeChildByName(parent, name) },
		func() error { return e.addChild(parent, node) },
	)
	e.tx.add(
		func() error { return e.index.delete(id) },
		func() error { return e.index.write(node, now) },
	)
	e.tx.add(
		func() error { return e.index.write(parent, now) },
		func() error { return e.index.delete(parent.ID) },
	)
	return e.tx.commit()
}

// RenameFile changes an inode's name in place without moving it between
// directories. There is no uniqueness check against the parent's other
// children here; callers that need one enforce it themselves.
func (e *Engine) RenameFile(fullPath string, newName string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	_, node, err := e.resolvePath(fullPath, true)
	if err != nil {
		return err
	}
	node.Name = newName
	return e.index.write(node, currentEpoch())
}

// CopyFile reads src and creates a new file at dst with the same contents.
func (e *Engine) CopyFile(src, dst string) (*Inode, error) {
	data, err := e.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return e.CreateFile(dst, data)
}

// MoveFile relocates a file to a different parent directory, keeping its
// name and contents, in one transaction.
func (e *Engine) MoveFile(src, dstDir string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	srcParent, node, err := e.resolvePath(src, true)
	if err != nil {
		return err
	}
	if node.IsDirectory {
		return vfserrors.ErrIsADirectory.WithMessage(src)
	}

	_, dstNode, err := e.resolvePath(dstDir, false)
	if err != nil {
		return err
	}
	if !dstNode.IsDirectory {
		return vfserrors.ErrNotADirectory.WithMessage(dstDir)
	}
	if _, exists := e.findChildName(dstNode, node.Name); exists {
		return vfserrors.ErrAlreadyExists.WithMessage(node.Name)
	}

	e.tx.add(
		func() error { return e.removeChildByName(srcParent, node.Name) },
		func() error { return e.addChild(srcParent, node) },
	)
	e.tx.add(
		func() error { return e.addChild(dstNode, node) },
		func() error { return e.removeChildByName(dstNode, node.Name) },
	)
	return e.tx.commit()
}

// ---------------------------------------------------------------------------
// Directories

// CreateDirectory allocates a new, empty directory inode under the resolved
// parent.
func (e *Engine) CreateDirectory(fullPath string) (*Inode, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	dir, name := splitLastComponent(fullPath)
	_, parent, err := e.resolvePath(dir, false)
	if err != nil {
		return nil, err
	}
	if !parent.IsDirectory {
		return nil, vfserrors.ErrNotADirectory.WithMessage(dir)
	}
	if _, exists := e.findChildName(parent, name); exists {
		return nil, vfserrors.ErrAlreadyExists.WithMessage(fullPath)
	}

	start, err := e.allocator.FindFreeRun(1)
	if err != nil {
		return nil, err
	}
	id, err := e.metadata.nextID()
	if err != nil {
		return nil, err
	}

	now := currentEpoch()
	node := &Inode{ID: id, Name: name, IsDirectory: true, StartBlock: uint32(start), Blocks: 1, CreatedAt: now, ModifiedAt: now}

	e.tx.add(
		func() error { return e.allocator.MarkRange(start, 1) },
		func() error { return e.allocator.FreeRange(start, 1) },
	)
	e.tx.add(
		func() error { return e.writeRawAt(start, make([]byte, e.layout.BlockSize)) },
		nil,
	)
	e.tx.add(
		func() error { return e.addChild(parent, node) },
		func() error { return e.removeChildByName(parent, node.Name) },
	)
	e.tx.add(
		func() error { return e.index.write(node, now) },
		func() error { return e.index.delete(node.ID) },
	)
	e.tx.add(
		func() error { return e.index.write(parent, now) },
		func() error { return e.index.delete(parent.ID) },
	)

	if err := e.tx.commit(); err != nil {
		return nil, err
	}
	return node, nil
}

// ListDirectoryContents returns copies of the immediate children of the
// resolved directory.
func (e *Engine) ListDirectoryContents(fullPath string) ([]Inode, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	_, node, err := e.resolvePath(fullPath, false)
	if err != nil {
		return nil, err
	}
	if !node.IsDirectory {
		return nil, vfserrors.ErrNotADirectory.WithMessage(fullPath)
	}
	children, err := e.loadChildren(node)
	if err != nil {
		return nil, err
	}

	out := make([]Inode, len(children))
	for i, c := range children {
		out[i] = *c
	}
	return out, nil
}

// DeleteDirectory recursively deletes a directory and everything under it.
// Children are freed and removed from the index before the directory's own
// range and entry, so the in-memory child ids stay resolvable for the whole
// walk.
func (e *Engine) DeleteDirectory(fullPath string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	parent, node, err := e.resolvePath(fullPath, true)
	if err != nil {
		return err
	}
	if !node.IsDirectory {
		return vfserrors.ErrNotADirectory.WithMessage(fullPath)
	}
	if node.ID == 0 {
		return vfserrors.ErrInvalidArgument.WithMessage("cannot delete root")
	}

	// Unlink from the parent first: removeChildByName resolves every sibling
	// id through the index, which would miss node once it is unindexed.
	name := node.Name
	now := currentEpoch()
	e.tx.add(
		func() error { return e.removeChildByName(parent, name) },
		func() error { return e.addChild(parent, node) },
	)

	if err := e.stageDeleteSubtree(node); err != nil {
		return err
	}

	e.tx.add(
		func() error { return e.index.write(parent, now) },
		func() error { return e.index.delete(parent.ID) },
	)
	return e.tx.commit()
}

// stageDeleteSubtree appends (do, undo) steps, in post-order, to free and
// unindex node and every descendant of node. It does not commit; the caller
// stages the unlink-from-parent step ahead of these and commits them all in
// one transaction.
func (e *Engine) stageDeleteSubtree(node *Inode) error {
	children, err := e.loadChildren(node)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsDirectory {
			if err := e.stageDeleteSubtree(child); err != nil {
				return err
			}
		}
		e.stageFreeAndUnindex(child)
	}
	e.stageFreeAndUnindex(node)
	return nil
}

func (e *Engine) stageFreeAndUnindex(node *Inode) {
	start := BlockID(node.StartBlock)
	n := node.Blocks
	id := node.ID
	now := currentEpoch()

	e.tx.add(
		func() error { return e.allocator.FreeRange(start, n) },
		func() error { return e.allocator.MarkRange(start, n) },
	)
	e.tx.add(
		func() error { return e.index.delete(id) },
		func() error { return e.index.write(node, now) },
	)
}

// CopyDirectory recursively copies a directory and its entire contents to a
// new path.
func (e *Engine) CopyDirectory(src, dst string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	_, node, err := e.resolvePath(src, true)
	if err != nil {
		return err
	}
	if !node.IsDirectory {
		return vfserrors.ErrNotADirectory.WithMessage(src)
	}

	if _, err := e.CreateDirectory(dst); err != nil {
		return err
	}

	children, err := e.loadChildren(node)
	if err != nil {
		return err
	}
	for _, child := range children {
		childSrc := joinPath(src, child.Name)
		childDst := joinPath(dst, child.Name)
		if child.IsDirectory {
			if err := e.CopyDirectory(childSrc, childDst); err != nil {
				return err
			}
		} else if _, err := e.CopyFile(childSrc, childDst); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Queries

// Exists reports whether fullPath resolves to something.
func (e *Engine) Exists(fullPath string) bool {
	_, _, err := e.resolvePath(fullPath, false)
	return err == nil
}

// IsDirectory reports whether fullPath resolves to a directory.
func (e *Engine) IsDirectory(fullPath string) (bool, error) {
	if err := e.checkOpen(); err != nil {
		return false, err
	}
	_, node, err := e.resolvePath(fullPath, false)
	if err != nil {
		return false, err
	}
	return node.IsDirectory, nil
}

// GetFileSize returns a file's allocated size (blocks * block size), not
// its trimmed logical length.
func (e *Engine) GetFileSize(fullPath string) (uint64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	_, node, err := e.resolvePath(fullPath, false)
	if err != nil {
		return 0, err
	}
	if node.IsDirectory {
		return 0, vfserrors.ErrIsADirectory.WithMessage(fullPath)
	}
	return uint64(node.Blocks) * uint64(e.layout.BlockSize), nil
}

// ResolvePath exposes path resolution directly; target is always non-nil on
// success, parent equals target when resolving root itself.
func (e *Engine) ResolvePath(fullPath string) (parent Inode, target Inode, err error) {
	if err := e.checkOpen(); err != nil {
		return Inode{}, Inode{}, err
	}
	p, t, err := e.resolvePath(fullPath, true)
	if err != nil {
		return Inode{}, Inode{}, err
	}
	return *p, *t, nil
}

// ListAllFiles returns a copy of every live inode in the index, independent
// of directory structure.
func (e *Engine) ListAllFiles() []Inode {
	out := make([]Inode, 0, len(e.index.byID))
	for _, n := range e.index.byID {
		out = append(out, *n)
	}
	return out
}

func (e *Engine) findChildName(parent *Inode, name string) (*Inode, bool) {
	children, err := e.loadChildren(parent)
	if err != nil {
		return nil, false
	}
	for _, c := range children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func padTo(data []byte, size uint64) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

package svfs

import "sort"

// CalculateFragmentation reports the percentage of the in-use block range
// (from block 0 to the end of the last live inode's run) that is made up of
// gaps between runs, rather than live data. An image with every inode
// packed contiguously from block 0 reports 0.
func (e *Engine) CalculateFragmentation() float64 {
	nodes := e.liveNodesByStart()
	if len(nodes) == 0 {
		return 0
	}

	var gapBlocks uint64
	for i := 0; i+1 < len(nodes); i++ {
		curEnd := uint64(nodes[i].StartBlock) + uint64(nodes[i].Blocks)
		nextStart := uint64(nodes[i+1].StartBlock)
		if nextStart > curEnd {
			gapBlocks += nextStart - curEnd
		}
	}

	last := nodes[len(nodes)-1]
	span := uint64(last.StartBlock) + uint64(last.Blocks)
	if span == 0 {
		return 0
	}
	return float64(gapBlocks) / float64(span) * 100
}

// Defragment compacts every live inode's blocks toward block 0, in
// ascending start_block order, closing every gap in a single synchronous
// pass. It rewrites block data, the bitmap, and the index for each moved
// inode. It is not staged through the transaction manager: on an error it
// returns at once, inodes already moved stay moved, and nothing is rolled
// back, including the free of the inode being moved at the time.
func (e *Engine) Defragment() error {
	nodes := e.liveNodesByStart()

	next := BlockID(0)
	now := currentEpoch()
	for _, node := range nodes {
		if BlockID(node.StartBlock) == next {
			next += BlockID(node.Blocks)
			continue
		}

		data, err := e.readRawBlocks(node)
		if err != nil {
			return err
		}
		if err := e.allocator.FreeRange(BlockID(node.StartBlock), node.Blocks); err != nil {
			return err
		}
		if err := e.writeRawAt(next, data); err != nil {
			return err
		}
		if err := e.allocator.MarkRange(next, node.Blocks); err != nil {
			return err
		}

		node.StartBlock = uint32(next)
		if err := e.index.write(node, now); err != nil {
			return err
		}
		next += BlockID(node.Blocks)
	}
	return nil
}

func (e *Engine) liveNodesByStart() []*Inode {
	nodes := make([]*Inode, 0, len(e.index.byID))
	for _, n := range e.index.byID {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].StartBlock < nodes[j].StartBlock })
	return nodes
}

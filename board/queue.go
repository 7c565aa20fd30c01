// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"github.com/go-lpc/rhythm/datablock"
)

// Queue is a FIFO of data blocks, in arrival order.
type Queue struct {
	blks []*datablock.Block
	beg  int
}

// Len returns the number of queued blocks.
func (q *Queue) Len() int { return len(q.blks) - q.beg }

// Push appends blocks at the back of the queue.
func (q *Queue) Push(blks ...*datablock.Block) {
	q.blks = append(q.blks, blks...)
}

// Front returns the oldest block, or nil if the queue is empty.
func (q *Queue) Front() *datablock.Block {
	if q.Len() == 0 {
		return nil
	}
	return q.blks[q.beg]
}

// Pop removes and returns the oldest block, or nil if the queue is empty.
func (q *Queue) Pop() *datablock.Block {
	if q.Len() == 0 {
		return nil
	}
	blk := q.blks[q.beg]
	q.blks[q.beg] = nil
	q.beg++
	if q.beg == len(q.blks) {
		q.blks = q.blks[:0]
		q.beg = 0
	}
	return blk
}

// Take moves the content of q into a new queue and leaves q empty.
func (q *Queue) Take() *Queue {
	o := &Queue{blks: q.blks[q.beg:]}
	q.blks = nil
	q.beg = 0
	return o
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"fmt"
	"io"

	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/regs"
)

// FifoCapacityInWords returns the capacity of the board FIFO, in 16-bit words.
func FifoCapacityInWords() int { return regs.FIFOCapacity }

// NumWordsInFifo returns the number of 16-bit words waiting in the FIFO.
func (brd *Board) NumWordsInFifo() (int, error) {
	err := brd.t.UpdateWireOuts()
	if err != nil {
		return 0, fmt.Errorf("board: could not update wire-outs: %w", err)
	}
	var (
		msb = brd.t.WireOutValue(regs.WireOutNumWordsMsb)
		lsb = brd.t.WireOutValue(regs.WireOutNumWordsLsb)
		n   = int(msb<<16 + lsb)
	)
	brd.metrics.fifo.Set(float64(n))
	return n, nil
}

func (brd *Board) readPipe(p []byte) error {
	n, err := brd.t.ReadFromPipeOut(regs.PipeOutData, p)
	brd.metrics.bytes.Add(float64(n))
	if err != nil {
		return fmt.Errorf("could not read %d bytes from pipe-out: %w", len(p), err)
	}
	if n != len(p) {
		return fmt.Errorf(
			"could not read %d bytes from pipe-out (got=%d): %w",
			len(p), n, io.ErrUnexpectedEOF,
		)
	}
	return nil
}

// ReadDataBlock reads one data block from the USB pipe into blk.
//
// The FIFO is not checked first: callers should make sure it holds at
// least one data block.
func (brd *Board) ReadDataBlock(blk *datablock.Block) error {
	n := brd.streams.NumEnabled()
	size := 2 * datablock.SizeInWords(n)
	if size > len(brd.buf) {
		return fmt.Errorf(
			"board: could not read data block of %d bytes (buffer=%d): %w",
			size, len(brd.buf), ErrBufferTooSmall,
		)
	}

	err := brd.readPipe(brd.buf[:size])
	if err != nil {
		return fmt.Errorf("board: could not read data block: %w", err)
	}

	err = blk.Decode(brd.buf[:size], 0, n)
	if err != nil {
		return fmt.Errorf("board: could not decode data block: %w", err)
	}
	brd.metrics.blocks.Inc()
	return nil
}

// ReadDataBlocks reads nblocks data blocks in a single USB transfer and
// appends them to q, in arrival order.
//
// ReadDataBlocks returns ErrInsufficientData, and leaves q untouched,
// if the FIFO does not hold nblocks data blocks yet.
func (brd *Board) ReadDataBlocks(nblocks int, q *Queue) error {
	if nblocks < 1 {
		return errParam("read-data-blocks", "number of blocks", nblocks)
	}

	var (
		n     = brd.streams.NumEnabled()
		words = nblocks * datablock.SizeInWords(n)
	)
	avail, err := brd.NumWordsInFifo()
	if err != nil {
		return err
	}
	if avail < words {
		return ErrInsufficientData
	}

	size := 2 * words
	if size > len(brd.buf) {
		return fmt.Errorf(
			"board: could not read %d data blocks of %d bytes (buffer=%d): %w",
			nblocks, size, len(brd.buf), ErrBufferTooSmall,
		)
	}

	err = brd.readPipe(brd.buf[:size])
	if err != nil {
		return fmt.Errorf("board: could not read %d data blocks: %w", nblocks, err)
	}

	blks := make([]*datablock.Block, nblocks)
	for i := range blks {
		blk := datablock.New(n)
		err = blk.Decode(brd.buf[:size], i, n)
		if err != nil {
			return fmt.Errorf("board: could not decode data block #%d: %w", i, err)
		}
		blks[i] = blk
	}
	q.Push(blks...)
	brd.metrics.blocks.Add(float64(nblocks))
	return nil
}

// Flush discards all the data held in the FIFO and returns the number
// of bytes read out. The SPI sequencer must be stopped.
func (brd *Board) Flush() (int, error) {
	running, err := brd.IsRunning()
	if err != nil {
		return 0, fmt.Errorf("board: could not flush FIFO: %w", err)
	}
	if running {
		return 0, fmt.Errorf("board: could not flush FIFO while SPI is running: %w", ErrInvalidState)
	}

	prev := brd.state
	brd.state = Flushing
	defer func() {
		if brd.state == Flushing {
			brd.state = prev
		}
	}()

	var (
		tot  int
		full = len(brd.buf)
	)
	for {
		words, err := brd.NumWordsInFifo()
		if err != nil {
			return tot, fmt.Errorf("board: could not flush FIFO: %w", err)
		}
		if words == 0 {
			break
		}
		size := 2 * words
		if words >= full/2 {
			size = full
		}
		err = brd.readPipe(brd.buf[:size])
		if err != nil {
			return tot, fmt.Errorf("board: could not flush FIFO: %w", err)
		}
		tot += size
	}

	brd.state = Idle
	brd.metrics.flushed.Add(float64(tot))
	brd.msg.Debugf("flushed %d bytes from FIFO", tot)
	return tot, nil
}

// QueueToFile writes the blocks of q to w, oldest first, and removes them
// from the queue. It returns the number of blocks written.
func (brd *Board) QueueToFile(q *Queue, w io.Writer) (int, error) {
	enc := datablock.NewEncoder(w, brd.streams.NumEnabled())
	n, err := writeQueue(enc, q)
	if err != nil {
		return n, fmt.Errorf("board: could not write data blocks: %w", err)
	}
	return n, nil
}

func writeQueue(enc *datablock.Encoder, q *Queue) (int, error) {
	n := 0
	for q.Len() > 0 {
		err := enc.Encode(q.Front())
		if err != nil {
			return n, err
		}
		q.Pop()
		n++
	}
	return n, nil
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func enableStreams(t *testing.T, brd *Board, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := brd.EnableDataStream(i, true)
		if err != nil {
			t.Fatalf("could not enable stream %d: %+v", i, err)
		}
	}
}

func TestNumWordsInFifo(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)

	n, err := brd.NumWordsInFifo()
	if err != nil {
		t.Fatalf("could not read FIFO size: %+v", err)
	}
	if n != 0 {
		t.Fatalf("invalid FIFO size: got=%d, want=0", n)
	}

	dev.PushRaw(make([]byte, 2*70000))
	n, err = brd.NumWordsInFifo()
	if err != nil {
		t.Fatalf("could not read FIFO size: %+v", err)
	}
	if n != 70000 {
		t.Fatalf("invalid FIFO size: got=%d, want=70000", n)
	}

	if got, want := FifoCapacityInWords(), 67108864; got != want {
		t.Fatalf("invalid FIFO capacity: got=%d, want=%d", got, want)
	}
}

func TestReadDataBlocks(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)
	enableStreams(t, brd, 2)

	want := []*datablock.Block{newBlock(2, 1), newBlock(2, 2), newBlock(2, 3)}
	dev.Push(want...)

	var q Queue
	err := brd.ReadDataBlocks(3, &q)
	if err != nil {
		t.Fatalf("could not read data blocks: %+v", err)
	}

	if got, want := dev.Reads(), []int{2 * 3 * 5280}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid USB transfers: got=%v, want=%v", got, want)
	}
	if got, want := q.Len(), 3; got != want {
		t.Fatalf("invalid queue length: got=%d, want=%d", got, want)
	}
	for i := range want {
		got := q.Pop()
		if !reflect.DeepEqual(got, want[i]) {
			t.Fatalf("block #%d: invalid content", i)
		}
	}
	if got := dev.FifoWords(); got != 0 {
		t.Fatalf("FIFO not drained: %d words left", got)
	}
	if got, want := testutil.ToFloat64(brd.metrics.blocks), 3.0; got != want {
		t.Fatalf("invalid blocks metric: got=%v, want=%v", got, want)
	}
	if got, want := testutil.ToFloat64(brd.metrics.bytes), float64(2*3*5280); got != want {
		t.Fatalf("invalid bytes metric: got=%v, want=%v", got, want)
	}
}

func TestReadDataBlocksErrors(t *testing.T) {
	t.Run("insufficient-data", func(t *testing.T) {
		dev := fakefpga.New()
		brd := newTestBoard(t, dev)
		enableStreams(t, brd, 2)
		dev.Push(newBlock(2, 1), newBlock(2, 2))

		var q Queue
		err := brd.ReadDataBlocks(3, &q)
		if !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrInsufficientData)
		}
		if q.Len() != 0 {
			t.Fatalf("queue modified: %d blocks", q.Len())
		}
		if got := dev.Reads(); len(got) != 0 {
			t.Fatalf("USB transfer issued: %v", got)
		}
		if got, want := dev.FifoWords(), 2*5280; got != want {
			t.Fatalf("FIFO modified: got=%d, want=%d", got, want)
		}
	})

	t.Run("buffer-too-small", func(t *testing.T) {
		dev := fakefpga.New()
		brd := newTestBoard(t, dev, WithBufferSize(4096))
		enableStreams(t, brd, 1)
		dev.Push(newBlock(1, 1))

		var q Queue
		err := brd.ReadDataBlocks(1, &q)
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrBufferTooSmall)
		}
		if got := dev.Reads(); len(got) != 0 {
			t.Fatalf("USB transfer issued: %v", got)
		}

		err = brd.ReadDataBlock(datablock.New(1))
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrBufferTooSmall)
		}
	})

	t.Run("bad-magic", func(t *testing.T) {
		dev := fakefpga.New()
		brd := newTestBoard(t, dev)
		enableStreams(t, brd, 1)

		raw := datablock.AppendRaw(nil, newBlock(1, 1))
		raw = datablock.AppendRaw(raw, newBlock(1, 2))
		raw[len(raw)/2+3] ^= 0xff // corrupt the first header of the second block.
		dev.PushRaw(raw)

		var q Queue
		err := brd.ReadDataBlocks(2, &q)
		if !errors.Is(err, datablock.ErrBadMagic) {
			t.Fatalf("invalid error: got=%v, want=%v", err, datablock.ErrBadMagic)
		}
		if q.Len() != 0 {
			t.Fatalf("queue modified: %d blocks", q.Len())
		}
	})

	t.Run("transfer", func(t *testing.T) {
		dev := fakefpga.New()
		dev.ReadErr = io.ErrClosedPipe
		brd := newTestBoard(t, dev)
		enableStreams(t, brd, 1)
		dev.Push(newBlock(1, 1))

		var q Queue
		err := brd.ReadDataBlocks(1, &q)
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("invalid error: got=%v, want=%v", err, io.ErrClosedPipe)
		}
	})

	t.Run("invalid-count", func(t *testing.T) {
		brd := newTestBoard(t, fakefpga.New())
		var q Queue
		err := brd.ReadDataBlocks(0, &q)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrInvalidParameter)
		}
	})
}

func TestReadDataBlock(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)
	enableStreams(t, brd, 4)

	want := newBlock(4, 42)
	dev.Push(want, newBlock(4, 43))

	got := datablock.New(1)
	err := brd.ReadDataBlock(got)
	if err != nil {
		t.Fatalf("could not read data block: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid data block")
	}
	if got, want := dev.FifoWords(), datablock.SizeInWords(4); got != want {
		t.Fatalf("invalid FIFO content: got=%d, want=%d", got, want)
	}

	err = brd.ReadDataBlock(got)
	if err != nil {
		t.Fatalf("could not read data block: %+v", err)
	}

	err = brd.ReadDataBlock(got)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("invalid error: got=%v, want=%v", err, io.ErrUnexpectedEOF)
	}
}

func TestFlush(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev, WithBufferSize(1024))
	dev.PushRaw(make([]byte, 5000))

	n, err := brd.Flush()
	if err != nil {
		t.Fatalf("could not flush FIFO: %+v", err)
	}
	if n != 5000 {
		t.Fatalf("invalid number of flushed bytes: got=%d, want=5000", n)
	}
	if got, want := dev.Reads(), []int{1024, 1024, 1024, 1024, 904}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid USB transfers: got=%v, want=%v", got, want)
	}
	if got := dev.FifoWords(); got != 0 {
		t.Fatalf("FIFO not empty: %d words", got)
	}
	if got, want := brd.State(), Idle; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}

	n, err = brd.Flush()
	if err != nil {
		t.Fatalf("could not flush empty FIFO: %+v", err)
	}
	if n != 0 {
		t.Fatalf("invalid number of flushed bytes: got=%d, want=0", n)
	}
}

func TestQueueToFile(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)
	enableStreams(t, brd, 1)

	want := []*datablock.Block{newBlock(1, 1), newBlock(1, 2)}
	var q Queue
	q.Push(want...)

	buf := new(bytes.Buffer)
	n, err := brd.QueueToFile(&q, buf)
	if err != nil {
		t.Fatalf("could not write queue: %+v", err)
	}
	if n != 2 {
		t.Fatalf("invalid number of blocks: got=%d, want=2", n)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d blocks", q.Len())
	}
	if got, want := buf.Len(), 2*datablock.RecordSize(1); got != want {
		t.Fatalf("invalid output size: got=%d, want=%d", got, want)
	}

	dec := datablock.NewDecoder(buf, 1)
	for i := range want {
		var got datablock.Block
		err := dec.Decode(&got)
		if err != nil {
			t.Fatalf("could not decode block #%d: %+v", i, err)
		}
		if !reflect.DeepEqual(&got, want[i]) {
			t.Fatalf("block #%d: invalid content", i)
		}
	}

	// blocks recorded with another stream geometry are left queued.
	q.Push(newBlock(2, 3), newBlock(2, 4))
	n, err = brd.QueueToFile(&q, io.Discard)
	if err == nil {
		t.Fatalf("expected a geometry error")
	}
	if n != 0 || q.Len() != 2 {
		t.Fatalf("invalid state: written=%d, queued=%d", n, q.Len())
	}
}

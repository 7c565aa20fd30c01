// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
)

func startRun(t *testing.T, brd *Board, streams int) {
	t.Helper()
	enableStreams(t, brd, streams)
	err := brd.SetContinuousRunMode(true)
	if err != nil {
		t.Fatalf("could not set run mode: %+v", err)
	}
	err = brd.Run()
	if err != nil {
		t.Fatalf("could not run: %+v", err)
	}
}

type failingWriter struct{}

var errWrite = errors.New("disk full")

func (failingWriter) Write(p []byte) (int, error) { return 0, errWrite }

func TestRecord(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)
	startRun(t, brd, 1)

	want := make([]*datablock.Block, 5)
	for i := range want {
		want[i] = newBlock(1, uint16(i))
	}
	dev.Push(want...)
	dev.Halt()

	buf := new(bytes.Buffer)
	n, err := brd.Record(context.Background(), buf, RecordOptions{BlocksPerRead: 2})
	if err != nil {
		t.Fatalf("could not record: %+v", err)
	}
	if n != len(want) {
		t.Fatalf("invalid number of blocks: got=%d, want=%d", n, len(want))
	}

	size := 2 * datablock.SizeInWords(1)
	if got, want := dev.Reads(), []int{2 * size, 2 * size, size}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid USB transfers: got=%v, want=%v", got, want)
	}
	if got, want := brd.State(), Stopped; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
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
	var blk datablock.Block
	if err := dec.Decode(&blk); !errors.Is(err, io.EOF) {
		t.Fatalf("invalid error: got=%v, want=%v", err, io.EOF)
	}
}

func TestRecordMaxBlocks(t *testing.T) {
	dev := fakefpga.New()
	brd := newTestBoard(t, dev)
	startRun(t, brd, 2)

	for i := 0; i < 5; i++ {
		dev.Push(newBlock(2, uint16(i)))
	}

	buf := new(bytes.Buffer)
	n, err := brd.Record(context.Background(), buf, RecordOptions{BlocksPerRead: 2, MaxBlocks: 3})
	if err != nil {
		t.Fatalf("could not record: %+v", err)
	}
	if n != 3 {
		t.Fatalf("invalid number of blocks: got=%d, want=3", n)
	}
	if got, want := buf.Len(), 3*datablock.RecordSize(2); got != want {
		t.Fatalf("invalid output size: got=%d, want=%d", got, want)
	}
	if got, want := dev.FifoWords(), 2*datablock.SizeInWords(2); got != want {
		t.Fatalf("invalid FIFO content: got=%d, want=%d", got, want)
	}
	if got, want := brd.State(), Running; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
}

func TestRecordErrors(t *testing.T) {
	t.Run("not-running", func(t *testing.T) {
		brd := newTestBoard(t, fakefpga.New())
		_, err := brd.Record(context.Background(), io.Discard, RecordOptions{})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrInvalidState)
		}
	})

	t.Run("buffer-too-small", func(t *testing.T) {
		dev := fakefpga.New()
		brd := newTestBoard(t, dev, WithBufferSize(8192))
		startRun(t, brd, 1)
		_, err := brd.Record(context.Background(), io.Discard, RecordOptions{BlocksPerRead: 2})
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Fatalf("invalid error: got=%v, want=%v", err, ErrBufferTooSmall)
		}
		if got := dev.Reads(); len(got) != 0 {
			t.Fatalf("USB transfer issued: %v", got)
		}
	})

	t.Run("writer", func(t *testing.T) {
		dev := fakefpga.New()
		brd := newTestBoard(t, dev)
		startRun(t, brd, 1)
		dev.Push(newBlock(1, 1), newBlock(1, 2))

		n, err := brd.Record(context.Background(), failingWriter{}, RecordOptions{})
		if !errors.Is(err, errWrite) {
			t.Fatalf("invalid error: got=%v, want=%v", err, errWrite)
		}
		if n != 0 {
			t.Fatalf("invalid number of blocks: got=%d, want=0", n)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		dev := fakefpga.New()
		dev.ReadErr = io.ErrClosedPipe
		brd := newTestBoard(t, dev)
		startRun(t, brd, 1)
		dev.Push(newBlock(1, 1))

		_, err := brd.Record(context.Background(), io.Discard, RecordOptions{})
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("invalid error: got=%v, want=%v", err, io.ErrClosedPipe)
		}
	})
}

func TestRecordCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := fakefpga.New()
	polls := 0
	brd := newTestBoard(t, dev, WithSleep(func(time.Duration) {
		polls++
		if polls == 5 {
			cancel()
		}
	}))
	startRun(t, brd, 1)
	dev.Push(newBlock(1, 1))

	buf := new(bytes.Buffer)
	n, err := brd.Record(ctx, buf, RecordOptions{})
	if err != nil {
		t.Fatalf("could not record: %+v", err)
	}
	if n != 1 {
		t.Fatalf("invalid number of blocks: got=%d, want=1", n)
	}
	if got, want := buf.Len(), datablock.RecordSize(1); got != want {
		t.Fatalf("invalid output size: got=%d, want=%d", got, want)
	}
}

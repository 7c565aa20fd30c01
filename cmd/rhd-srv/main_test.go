// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/board"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
)

func TestPattern(t *testing.T) {
	blk := pattern(3, 120)
	if got, want := blk.NumStreams, 3; got != want {
		t.Fatalf("invalid number of streams: got=%d, want=%d", got, want)
	}
	if got, want := blk.Stamps[59], uint32(179); got != want {
		t.Fatalf("invalid time stamp: got=%d, want=%d", got, want)
	}
	if got, want := blk.Amplifier[2][5][10], uint16(0x8000+128+5); got != want {
		t.Fatalf("invalid amplifier sample: got=0x%04x, want=0x%04x", got, want)
	}
	if got, want := blk.Aux[1][2][42], uint16(42); got != want {
		t.Fatalf("invalid aux sample: got=%d, want=%d", got, want)
	}
}

func TestFeed(t *testing.T) {
	dev := fakefpga.New()
	brd, err := board.New(dev, board.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("could not create board: %+v", err)
	}
	err = brd.Initialize(context.Background())
	if err != nil {
		t.Fatalf("could not initialize board: %+v", err)
	}
	err = brd.SetContinuousRunMode(true)
	if err != nil {
		t.Fatalf("could not set run mode: %+v", err)
	}
	err = brd.Run()
	if err != nil {
		t.Fatalf("could not start run: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		feed(ctx, dev)
	}()

	timeout := time.After(10 * time.Second)
	for dev.FifoWords() < 2*datablock.SizeInWords(1) {
		select {
		case <-timeout:
			cancel()
			t.Fatalf("FIFO not fed")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := dev.FifoWords() % datablock.SizeInWords(1); got != 0 {
		t.Fatalf("FIFO holds a partial data block (%d words)", got)
	}
	if got, max := dev.FifoWords(), 16*datablock.SizeInWords(1); got > max {
		t.Fatalf("FIFO overfed: got=%d, max=%d", got, max)
	}
}

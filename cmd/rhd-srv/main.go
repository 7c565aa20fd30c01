// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rhd-srv starts a TDAQ server driving an emulated Rhythm board.
//
// The emulated FPGA is fed with a synthetic test pattern while running.
package main // import "github.com/go-lpc/rhythm/cmd/rhd-srv"

import (
	"context"
	"math/bits"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/rhythm/board"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
	"github.com/go-lpc/rhythm/internal/regs"
)

func main() {
	cmd := flags.New()
	msg := log.NewWithOptions(os.Stderr, log.Options{Prefix: cmd.Args[0]})

	dev := fakefpga.New()
	brd, err := board.New(dev, board.WithLogger(msg))
	if err != nil {
		msg.Fatalf("could not create board: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed(ctx, dev)

	rhd := board.NewServer(brd, 4)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", rhd.OnConfig)
	srv.CmdHandle("/init", rhd.OnInit)
	srv.CmdHandle("/reset", rhd.OnReset)
	srv.CmdHandle("/start", rhd.OnStart)
	srv.CmdHandle("/stop", rhd.OnStop)
	srv.CmdHandle("/quit", rhd.OnQuit)

	srv.OutputHandle("/blocks", rhd.Blocks)

	srv.RunHandle(rhd.Loop)

	err = srv.Run(ctx)
	if err != nil {
		msg.Fatalf("error: %+v", err)
	}
}

// feed pushes a test pattern into the FIFO of the emulated FPGA while it
// is running, sized after the enabled data streams, until ctx is done.
func feed(ctx context.Context, dev *fakefpga.FPGA) {
	var stamp uint32
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n := bits.OnesCount32(dev.Wire(regs.WireInDataStreamEn))
		if n == 0 || !dev.Running() || dev.FifoWords() >= 16*datablock.SizeInWords(n) {
			sleep(ctx)
			continue
		}
		dev.Push(pattern(n, stamp))
		stamp += datablock.SamplesPerBlock
		sleep(ctx)
	}
}

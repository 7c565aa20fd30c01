// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/rhythm/board"
	"github.com/go-lpc/rhythm/config"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
	"github.com/prometheus/client_golang/prometheus"
)

func TestCable(t *testing.T) {
	o := new(strings.Builder)
	err := cable(o, 3, true)
	if err != nil {
		t.Fatalf("could not display cable delays: %+v", err)
	}
	for _, line := range []string{
		"cable length: 0.914 m\n",
		"   30000 S/s: delay= 3 (estimate: ",
		"   20000 S/s: delay= 2 (estimate: ",
		"    1000 S/s: delay= 1 (estimate: ",
	} {
		if !strings.Contains(o.String(), line) {
			t.Fatalf("missing %q in:\n%s", line, o.String())
		}
	}
	if got, want := strings.Count(o.String(), "\n"), 1+len(board.SampleRates()); got != want {
		t.Fatalf("invalid number of lines: got=%d, want=%d", got, want)
	}

	o.Reset()
	err = cable(o, 100, false)
	if err != nil {
		t.Fatalf("could not display cable delays: %+v", err)
	}
	if !strings.Contains(o.String(), "   30000 S/s: cable too long\n") {
		t.Fatalf("missing overflow line in:\n%s", o.String())
	}
}

func TestCmds(t *testing.T) {
	o := new(strings.Builder)
	err := cmds(o, board.DefaultCommandSet, []string{"0x5500", "59392", "0b1000000011011110"})
	if err != nil {
		t.Fatalf("could not decode command words: %+v", err)
	}
	want := `command list (3 commands):
  command[0] = CALIBRATE
  command[1] = READ(40)
  command[2] = WRITE(0,0xde)
`
	if got := o.String(); got != want {
		t.Fatalf("invalid listing:\ngot:\n%s\nwant:\n%s", got, want)
	}

	err = cmds(o, board.DefaultCommandSet, []string{"0x10000"})
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Board.Streams = []int{0, 3}
	cfg.Acq.BlocksPerRead = 2
	cfg.Acq.MaxBlocks = 5
	cfg.Acq.Output = filepath.Join(t.TempDir(), "run.dat")

	reg := prometheus.NewRegistry()
	n, err := run(ctx, cfg, fakefpga.New(), reg)
	if err != nil {
		t.Fatalf("could not run: %+v", err)
	}
	if n != 5 {
		t.Fatalf("invalid number of blocks: got=%d, want=5", n)
	}

	fi, err := os.Stat(cfg.Acq.Output)
	if err != nil {
		t.Fatalf("could not stat output file: %+v", err)
	}
	if got, want := fi.Size(), int64(5*datablock.RecordSize(2)); got != want {
		t.Fatalf("invalid output size: got=%d, want=%d", got, want)
	}

	f, err := os.Open(cfg.Acq.Output)
	if err != nil {
		t.Fatalf("could not open output file: %+v", err)
	}
	defer f.Close()

	dec := datablock.NewDecoder(f, 2)
	for i := 0; i < 5; i++ {
		var blk datablock.Block
		err := dec.Decode(&blk)
		if err != nil {
			t.Fatalf("could not decode block #%d: %+v", i, err)
		}
		if got, want := blk.Stamps[0], uint32(60*i); got != want {
			t.Fatalf("block #%d: invalid time stamp: got=%d, want=%d", i, got, want)
		}
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("could not gather metrics: %+v", err)
	}
	var blocks float64
	for _, mf := range mfs {
		if mf.GetName() == "rhythm_data_blocks_total" {
			blocks = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if blocks != 5 {
		t.Fatalf("invalid data blocks metric: got=%v, want=5", blocks)
	}
}

func TestVersion(t *testing.T) {
	out := new(strings.Builder)
	version(out)
	if !strings.HasPrefix(out.String(), "rhd-daq ") {
		t.Fatalf("invalid version output: %q", out.String())
	}
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/board"
	"github.com/go-lpc/rhythm/internal/fakefpga"
	"github.com/go-lpc/rhythm/internal/regs"
)

const testConfig = `
board {
  sample_rate  = "20k"
  streams      = [0, 1, 5]
  sources      = ["PortB1", "PortB2"]
  lock_timeout = "2s"
  dsp_settle   = true
}

cables {
  unit    = "m"
  lengths = [1, 2]
}

aux {
  slot  = 2
  bank  = 3
  loop  = 1
  words = [256, 512, 21760]
}

acq {
  blocks_per_read = 4
  output          = "run-001.dat"
}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "rhythm.hcl")
	err := os.WriteFile(fname, []byte(content), 0644)
	if err != nil {
		t.Fatalf("could not write config file: %+v", err)
	}
	return fname
}

func noEnv() []string { return nil }

func TestDefault(t *testing.T) {
	cfg, err := load("", noEnv)
	if err != nil {
		t.Fatalf("could not load default config: %+v", err)
	}
	if got, want := cfg, Default(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid default config:\ngot= %+v\nwant=%+v", got, want)
	}

	rate, err := cfg.Board.Rate()
	if err != nil {
		t.Fatalf("could not parse default rate: %+v", err)
	}
	if rate != board.SampleRate30000 {
		t.Fatalf("invalid default rate: %v", rate)
	}
	mask, err := cfg.Board.StreamMask()
	if err != nil {
		t.Fatalf("could not compute stream mask: %+v", err)
	}
	if mask != 0x1 {
		t.Fatalf("invalid default mask: 0x%x", mask)
	}
	cs, err := cfg.Board.Commands()
	if err != nil {
		t.Fatalf("could not build command set: %+v", err)
	}
	if cs != board.DefaultCommandSet {
		t.Fatalf("invalid command set: got=%+v, want=%+v", cs, board.DefaultCommandSet)
	}
}

func TestLoad(t *testing.T) {
	fname := writeConfig(t, testConfig)
	cfg, err := load(fname, func() []string {
		return []string{
			"RHYTHM_ACQ_MAX_BLOCKS=100",
			"RHYTHM_BOARD_POLL_INTERVAL=10ms",
			"HOME=/root",
		}
	})
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	want := Config{
		Board: BoardConf{
			SampleRate:   "20k",
			Streams:      []int{0, 1, 5},
			Sources:      []string{"PortB1", "PortB2"},
			PollInterval: 10 * time.Millisecond,
			LockTimeout:  2 * time.Second,
			BufferSize:   2400000,
			DspSettle:    true,
			Calibrate:    0x5500,
			Clear:        0x6a00,
		},
		Cables: CableConf{Unit: "m", Lengths: []float64{1, 2}},
		Aux:    []AuxConf{{Slot: 2, Bank: 3, Loop: 1, Words: []int{256, 512, 21760}}},
		Acq: AcqConf{
			BlocksPerRead: 4,
			MaxBlocks:     100,
			Depth:         8,
			Output:        "run-001.dat",
		},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("invalid config:\ngot= %+v\nwant=%+v", cfg, want)
	}

	if got, want := cfg.Acq.RecordOptions(), (board.RecordOptions{BlocksPerRead: 4, MaxBlocks: 100, Depth: 8}); got != want {
		t.Fatalf("invalid record options: got=%+v, want=%+v", got, want)
	}
}

func TestLoadEnvStreams(t *testing.T) {
	cfg, err := load("", func() []string {
		return []string{"RHYTHM_BOARD_STREAMS=2,3", "RHYTHM_BOARD_SAMPLE_RATE=1k"}
	})
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	mask, err := cfg.Board.StreamMask()
	if err != nil {
		t.Fatalf("could not compute stream mask: %+v", err)
	}
	if mask != 0xc {
		t.Fatalf("invalid mask: got=0x%x, want=0xc", mask)
	}
	rate, err := cfg.Board.Rate()
	if err != nil {
		t.Fatalf("could not parse rate: %+v", err)
	}
	if rate != board.SampleRate1000 {
		t.Fatalf("invalid rate: got=%v, want=%v", rate, board.SampleRate1000)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.hcl"), noEnv)
	if err == nil {
		t.Fatalf("expected an error loading a missing file")
	}

	_, err = load(writeConfig(t, "board {"), noEnv)
	if err == nil {
		t.Fatalf("expected an error loading an invalid file")
	}

	for _, tc := range []struct {
		name string
		cfg  BoardConf
	}{
		{"stream", BoardConf{Streams: []int{8}}},
		{"negative-stream", BoardConf{Streams: []int{-1}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.StreamMask()
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}

	_, err = BoardConf{Calibrate: 0x10000}.Commands()
	if err == nil {
		t.Fatalf("expected an invalid command word error")
	}
}

func newBoard(t *testing.T, cfg Config, dev *fakefpga.FPGA) *board.Board {
	t.Helper()
	opts, err := cfg.Options(log.New(io.Discard))
	if err != nil {
		t.Fatalf("could not build board options: %+v", err)
	}
	opts = append(opts, board.WithSleep(func(time.Duration) {}))
	brd, err := board.New(dev, opts...)
	if err != nil {
		t.Fatalf("could not create board: %+v", err)
	}
	err = brd.Initialize(context.Background())
	if err != nil {
		t.Fatalf("could not initialize board: %+v", err)
	}
	return brd
}

func TestApply(t *testing.T) {
	cfg, err := load(writeConfig(t, testConfig), noEnv)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	dev := fakefpga.New()
	brd := newBoard(t, cfg, dev)

	err = cfg.Apply(context.Background(), brd)
	if err != nil {
		t.Fatalf("could not apply config: %+v", err)
	}

	if got, want := brd.SampleRate(), board.SampleRate20000; got != want {
		t.Fatalf("invalid rate: got=%v, want=%v", got, want)
	}
	if got, want := brd.Streams().Mask(), uint32(0x23); got != want {
		t.Fatalf("invalid streams: got=0x%x, want=0x%x", got, want)
	}
	if got, want := brd.Streams().Source(1), board.PortB2; got != want {
		t.Fatalf("invalid source: got=%v, want=%v", got, want)
	}
	for i, meters := range []float64{1, 2} {
		want, err := board.CableDelay(board.SampleRate20000, meters)
		if err != nil {
			t.Fatalf("could not compute delay: %+v", err)
		}
		if got := brd.CableDelaySetting(board.Port(i)); got != want {
			t.Fatalf("port %d: invalid delay: got=%d, want=%d", i, got, want)
		}
	}
	if got := dev.Wire(regs.WireInResetRun) & regs.ResetRunDspSettle; got == 0 {
		t.Fatalf("DSP settle not enabled")
	}

	for i, want := range []uint16{256, 512, 21760} {
		if got := dev.RAM(1, 3, i); got != want {
			t.Fatalf("invalid command word #%d: got=0x%04x, want=0x%04x", i, got, want)
		}
	}
	if got, want := dev.Wire(regs.WireInAuxCmdBank2), uint32(0x3333); got != want {
		t.Fatalf("invalid aux bank: got=0x%04x, want=0x%04x", got, want)
	}
	if got, want := dev.Wire(regs.WireInAuxCmdLoop2), uint32(1); got != want {
		t.Fatalf("invalid aux loop: got=%d, want=%d", got, want)
	}
	if got, want := dev.Wire(regs.WireInAuxCmdLength2), uint32(2); got != want {
		t.Fatalf("invalid aux length: got=%d, want=%d", got, want)
	}
}

func TestApplyErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(cfg *Config)
	}{
		{"rate", func(cfg *Config) { cfg.Board.SampleRate = "7k" }},
		{"unit", func(cfg *Config) { cfg.Cables.Unit = "yd" }},
		{"lengths", func(cfg *Config) { cfg.Cables.Lengths = []float64{1, 1, 1, 1, 1} }},
		{"source", func(cfg *Config) { cfg.Board.Sources = []string{"PortE1"} }},
		{"aux-empty", func(cfg *Config) { cfg.Aux = []AuxConf{{Slot: 1}} }},
		{"aux-slot", func(cfg *Config) { cfg.Aux = []AuxConf{{Slot: 4, Words: []int{0}}} }},
		{"aux-word", func(cfg *Config) { cfg.Aux = []AuxConf{{Slot: 1, Words: []int{0x10000}}} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			brd := newBoard(t, cfg, fakefpga.New())
			err := cfg.Apply(context.Background(), brd)
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

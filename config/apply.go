// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/board"
)

// Rate returns the configured sample rate.
func (cfg BoardConf) Rate() (board.SampleRate, error) {
	return board.ParseSampleRate(cfg.SampleRate)
}

// StreamMask returns the bitmap of the configured data streams.
func (cfg BoardConf) StreamMask() (uint32, error) {
	var mask uint32
	for _, i := range cfg.Streams {
		if i < 0 || i >= board.MaxNumDataStreams {
			return 0, fmt.Errorf("config: invalid data stream %d", i)
		}
		mask |= 1 << uint(i)
	}
	return mask, nil
}

// Commands returns the configured command set.
func (cfg BoardConf) Commands() (board.CommandSet, error) {
	for _, w := range []int{cfg.Calibrate, cfg.Clear} {
		if w < 0 || w > 0xffff {
			return board.CommandSet{}, fmt.Errorf("config: invalid command word 0x%x", w)
		}
	}
	return board.CommandSet{
		Calibrate: uint16(cfg.Calibrate),
		Clear:     uint16(cfg.Clear),
	}, nil
}

// Options returns the board options matching the configuration.
func (cfg Config) Options(msg *log.Logger) ([]board.Option, error) {
	cs, err := cfg.Board.Commands()
	if err != nil {
		return nil, err
	}
	opts := []board.Option{
		board.WithPollInterval(cfg.Board.PollInterval),
		board.WithLockTimeout(cfg.Board.LockTimeout),
		board.WithBufferSize(cfg.Board.BufferSize),
		board.WithCommandSet(cs),
	}
	if msg != nil {
		opts = append(opts, board.WithLogger(msg))
	}
	return opts, nil
}

// RecordOptions returns the recorder options matching the configuration.
func (cfg AcqConf) RecordOptions() board.RecordOptions {
	return board.RecordOptions{
		BlocksPerRead: cfg.BlocksPerRead,
		MaxBlocks:     cfg.MaxBlocks,
		Depth:         cfg.Depth,
	}
}

// Apply configures an initialized board: sample rate, cable lengths,
// data sources, aux command lists and enabled data streams.
func (cfg Config) Apply(ctx context.Context, brd *board.Board) error {
	rate, err := cfg.Board.Rate()
	if err != nil {
		return fmt.Errorf("config: could not parse sample rate: %w", err)
	}
	mask, err := cfg.Board.StreamMask()
	if err != nil {
		return err
	}

	err = brd.SetSampleRate(ctx, rate)
	if err != nil {
		return fmt.Errorf("config: could not set sample rate: %w", err)
	}

	if len(cfg.Cables.Lengths) > board.NumPorts {
		return fmt.Errorf("config: too many cable lengths (%d)", len(cfg.Cables.Lengths))
	}
	for i, length := range cfg.Cables.Lengths {
		port := board.Port(i)
		switch cfg.Cables.Unit {
		case "m":
			err = brd.SetCableLengthMeters(port, length)
		case "ft":
			err = brd.SetCableLengthFeet(port, length)
		default:
			return fmt.Errorf("config: invalid cable length unit %q", cfg.Cables.Unit)
		}
		if err != nil {
			return fmt.Errorf("config: could not set cable length of %v: %w", port, err)
		}
	}

	for i, name := range cfg.Board.Sources {
		src, err := board.ParseDataSource(name)
		if err != nil {
			return fmt.Errorf("config: invalid source of data stream %d: %w", i, err)
		}
		err = brd.SetDataSource(i, src)
		if err != nil {
			return fmt.Errorf("config: could not set source of data stream %d: %w", i, err)
		}
	}

	err = brd.SetDspSettle(cfg.Board.DspSettle)
	if err != nil {
		return fmt.Errorf("config: could not set DSP settle: %w", err)
	}

	for _, aux := range cfg.Aux {
		err = applyAux(brd, aux)
		if err != nil {
			return err
		}
	}

	for i := 0; i < board.MaxNumDataStreams; i++ {
		err = brd.EnableDataStream(i, mask&(1<<uint(i)) != 0)
		if err != nil {
			return fmt.Errorf("config: could not enable data stream %d: %w", i, err)
		}
	}
	return nil
}

func applyAux(brd *board.Board, aux AuxConf) error {
	if len(aux.Words) == 0 {
		return fmt.Errorf("config: empty command list for aux slot %d", aux.Slot)
	}
	words := make([]uint16, len(aux.Words))
	for i, w := range aux.Words {
		if w < 0 || w > 0xffff {
			return fmt.Errorf("config: invalid command word #%d (0x%x) for aux slot %d", i, w, aux.Slot)
		}
		words[i] = uint16(w)
	}

	slot := board.AuxCmdSlot(aux.Slot)
	err := brd.UploadCommandList(words, slot, aux.Bank)
	if err != nil {
		return fmt.Errorf("config: could not upload command list: %w", err)
	}
	for port := board.PortA; port <= board.PortD; port++ {
		err = brd.SelectAuxCommandBank(port, slot, aux.Bank)
		if err != nil {
			return fmt.Errorf("config: could not select aux command bank: %w", err)
		}
	}
	err = brd.SelectAuxCommandLength(slot, aux.Loop, len(words)-1)
	if err != nil {
		return fmt.Errorf("config: could not select aux command length: %w", err)
	}
	return nil
}

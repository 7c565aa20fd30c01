// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"math"
	"time"

	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/fakefpga"
)

// maxSimBlocks bounds the number of synthetic blocks waiting in the FIFO.
const maxSimBlocks = 16

// simulate fills the FIFO of dev with data blocks for n streams, sampled
// at rate, until ctx is done. Amplifier channel ch carries a sine wave of
// 10*(ch+1) Hz and 100 uV amplitude.
func simulate(ctx context.Context, dev *fakefpga.FPGA, n int, rate float64) {
	var (
		blk   = datablock.New(n)
		stamp uint32
		tick  = time.NewTicker(time.Millisecond)
	)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if dev.FifoWords() >= maxSimBlocks*datablock.SizeInWords(n) {
			continue
		}
		fill(blk, stamp, rate)
		dev.Push(blk)
		stamp += datablock.SamplesPerBlock
	}
}

func fill(blk *datablock.Block, stamp uint32, rate float64) {
	const amp = 100 / 0.195 // 100 uV, in ADC steps
	for t := range blk.Stamps {
		blk.Stamps[t] = stamp + uint32(t)
		x := 2 * math.Pi * float64(blk.Stamps[t]) / rate
		for s := range blk.Amplifier {
			for ch := range blk.Amplifier[s] {
				v := amp * math.Sin(10*float64(ch+1)*x)
				blk.Amplifier[s][ch][t] = uint16(32768 + math.Round(v))
			}
		}
		blk.TTLIn[t] = uint16(blk.Stamps[t] / uint32(rate) & 1)
	}
}

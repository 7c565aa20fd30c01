// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"time"

	"github.com/go-lpc/rhythm/datablock"
)

func sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Millisecond):
	}
}

// pattern returns a data block for n streams where amplifier channel ch of
// stream s holds 0x8000 + 64*s + ch, and aux results hold the sample index.
func pattern(n int, stamp uint32) *datablock.Block {
	blk := datablock.New(n)
	for t := range blk.Stamps {
		blk.Stamps[t] = stamp + uint32(t)
		for s := 0; s < n; s++ {
			for ch := range blk.Amplifier[s] {
				blk.Amplifier[s][ch][t] = uint16(0x8000 + 64*s + ch)
			}
			for ch := range blk.Aux[s] {
				blk.Aux[s][ch][t] = uint16(t)
			}
		}
	}
	return blk
}

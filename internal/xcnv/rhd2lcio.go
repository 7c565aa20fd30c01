// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/datablock"
	"go-hep.org/x/hep/lcio"
)

// RHD2LCIO converts the data blocks read from dec into LCIO events.
// It returns the number of converted data blocks.
func RHD2LCIO(w *lcio.Writer, dec *datablock.Decoder, run int32, streams int, msg *log.Logger) (int, error) {
	var (
		blk   datablock.Block
		board = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{
				{I32s: make([]int32, boardSize)},
			},
		}
		chans = &lcio.GenericObject{
			Data: make([]lcio.GenericObjectData, streams),
		}
	)
	for i := range chans.Data {
		chans.Data[i].I32s = make([]int32, streamSize)
	}

	i := 0
loop:
	for ; ; i++ {
		if i%100 == 0 {
			msg.Debugf("processing block %d...", i)
		}
		err := dec.Decode(&blk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return i, fmt.Errorf("could not decode data block: %w", err)
		}

		if i == 0 {
			err = w.WriteRunHeader(&lcio.RunHeader{
				RunNumber: run,
				Detector:  detector,
				Params: lcio.Params{
					Ints: map[string][]int32{
						"Streams":         {int32(streams)},
						"SamplesPerBlock": {datablock.SamplesPerBlock},
					},
				},
			})
			if err != nil {
				return i, fmt.Errorf("could not write run header: %w", err)
			}
		}

		fillBoard(board.Data[0].I32s, &blk)
		for s := range chans.Data {
			fillStream(chans.Data[s].I32s, &blk, s)
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(blk.Stamps[0]),
			Detector:    detector,
		}
		evt.Add(streamsCollection, chans)
		evt.Add(boardCollection, board)

		err = w.WriteEvent(&evt)
		if err != nil {
			return i, fmt.Errorf("could not write event %d: %w", i, err)
		}
	}

	return i, nil
}

func fillStream(dst []int32, blk *datablock.Block, s int) {
	i := 0
	for ch := range blk.Amplifier[s] {
		for _, v := range blk.Amplifier[s][ch] {
			dst[i] = int32(v)
			i++
		}
	}
	for ch := range blk.Aux[s] {
		for _, v := range blk.Aux[s][ch] {
			dst[i] = int32(v)
			i++
		}
	}
}

func fillBoard(dst []int32, blk *datablock.Block) {
	i := 0
	for _, v := range blk.Stamps {
		dst[i] = int32(v)
		i++
	}
	for ch := range blk.BoardADC {
		for _, v := range blk.BoardADC[ch] {
			dst[i] = int32(v)
			i++
		}
	}
	for _, v := range blk.TTLIn {
		dst[i] = int32(v)
		i++
	}
	for _, v := range blk.TTLOut {
		dst[i] = int32(v)
		i++
	}
}

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

// LCIO2RHD converts the LCIO events read from r back into data block records.
// It returns the number of converted data blocks.
func LCIO2RHD(w io.Writer, r *lcio.Reader, msg *log.Logger) (int, error) {
	var (
		enc *datablock.Encoder
		blk datablock.Block
		i   = 0
	)

	for r.Next() {
		if i%100 == 0 {
			msg.Debugf("processing evt %d...", i)
		}
		evt := r.Event()
		chans, ok := evt.Get(streamsCollection).(*lcio.GenericObject)
		if !ok {
			return i, fmt.Errorf("event %d: missing %s collection", i, streamsCollection)
		}
		board, ok := evt.Get(boardCollection).(*lcio.GenericObject)
		if !ok || len(board.Data) != 1 {
			return i, fmt.Errorf("event %d: missing %s collection", i, boardCollection)
		}

		n := len(chans.Data)
		if enc == nil {
			enc = datablock.NewEncoder(w, n)
		}

		blk.NumStreams = n
		if cap(blk.Amplifier) < n {
			blk.Amplifier = make([][datablock.NumAmplifiers][datablock.SamplesPerBlock]uint16, n)
			blk.Aux = make([][datablock.NumAux][datablock.SamplesPerBlock]uint16, n)
		}
		blk.Amplifier = blk.Amplifier[:n]
		blk.Aux = blk.Aux[:n]

		err := readBoard(&blk, board.Data[0].I32s)
		if err != nil {
			return i, fmt.Errorf("event %d: %w", i, err)
		}
		for s, data := range chans.Data {
			err = readStream(&blk, s, data.I32s)
			if err != nil {
				return i, fmt.Errorf("event %d: %w", i, err)
			}
		}

		err = enc.Encode(&blk)
		if err != nil {
			return i, fmt.Errorf("could not encode data block %d: %w", i, err)
		}
		i++
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return i, fmt.Errorf("could not read LCIO event %d: %w", i, err)
	}
	return i, nil
}

func readStream(blk *datablock.Block, s int, src []int32) error {
	if len(src) != streamSize {
		return fmt.Errorf("invalid stream %d payload (len=%d, want=%d)", s, len(src), streamSize)
	}
	i := 0
	for ch := range blk.Amplifier[s] {
		for j := range blk.Amplifier[s][ch] {
			blk.Amplifier[s][ch][j] = uint16(src[i])
			i++
		}
	}
	for ch := range blk.Aux[s] {
		for j := range blk.Aux[s][ch] {
			blk.Aux[s][ch][j] = uint16(src[i])
			i++
		}
	}
	return nil
}

func readBoard(blk *datablock.Block, src []int32) error {
	if len(src) != boardSize {
		return fmt.Errorf("invalid board payload (len=%d, want=%d)", len(src), boardSize)
	}
	i := 0
	for j := range blk.Stamps {
		blk.Stamps[j] = uint32(src[i])
		i++
	}
	for ch := range blk.BoardADC {
		for j := range blk.BoardADC[ch] {
			blk.BoardADC[ch][j] = uint16(src[i])
			i++
		}
	}
	for j := range blk.TTLIn {
		blk.TTLIn[j] = uint16(src[i])
		i++
	}
	for j := range blk.TTLOut {
		blk.TTLOut[j] = uint16(src[i])
		i++
	}
	return nil
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datablock describes and decodes the data blocks streamed by the
// Rhythm FPGA over USB, and (de)serializes them to/from record files.
//
// A data block holds SamplesPerBlock consecutive samples of every enabled
// data stream. Its size only depends on the number of enabled streams.
package datablock // import "github.com/go-lpc/rhythm/datablock"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SamplesPerBlock = 60 // samples per data block
	NumAmplifiers   = 32 // amplifier channels per data stream
	NumAux          = 3  // auxiliary command results per data stream
	NumBoardADCs    = 8  // on-board ADC channels

	// Magic is the 64-bit header starting every USB sample frame.
	Magic uint64 = 0xc691199927021942

	headerWords = 4 // magic
	stampWords  = 2 // timestamp
	streamWords = NumAux + NumAmplifiers + 1
	boardWords  = NumBoardADCs + 2 // board ADCs + TTL in/out
)

var (
	ErrBadMagic = errors.New("datablock: invalid sample header magic")
)

// SizeInWords returns the number of 16-bit words one data block occupies
// on the USB pipe when n data streams are enabled.
func SizeInWords(n int) int {
	return SamplesPerBlock * (headerWords + stampWords + streamWords*n + boardWords)
}

// RecordSize returns the size in bytes of one serialized data block
// when n data streams are enabled.
func RecordSize(n int) int {
	return SamplesPerBlock * (4 + 2*((NumAmplifiers+NumAux)*n+boardWords))
}

// Block is one data block, for n data streams.
type Block struct {
	NumStreams int

	Stamps    [SamplesPerBlock]uint32
	Amplifier [][NumAmplifiers][SamplesPerBlock]uint16 // [stream][channel][sample]
	Aux       [][NumAux][SamplesPerBlock]uint16        // [stream][aux-cmd][sample]
	BoardADC  [NumBoardADCs][SamplesPerBlock]uint16
	TTLIn     [SamplesPerBlock]uint16
	TTLOut    [SamplesPerBlock]uint16
}

// New returns a data block sized for n data streams.
func New(n int) *Block {
	var blk Block
	blk.resize(n)
	return &blk
}

func (blk *Block) resize(n int) {
	blk.NumStreams = n
	if cap(blk.Amplifier) < n {
		blk.Amplifier = make([][NumAmplifiers][SamplesPerBlock]uint16, n)
		blk.Aux = make([][NumAux][SamplesPerBlock]uint16, n)
		return
	}
	blk.Amplifier = blk.Amplifier[:n]
	blk.Aux = blk.Aux[:n]
}

// Decode fills the block from the i-th data block held in the raw USB
// buffer p, with n enabled data streams.
func (blk *Block) Decode(p []byte, i, n int) error {
	if n < 0 || i < 0 {
		return fmt.Errorf("datablock: invalid block geometry (index=%d, streams=%d)", i, n)
	}
	var (
		size = 2 * SizeInWords(n)
		beg  = i * size
	)
	if len(p) < beg+size {
		return fmt.Errorf(
			"datablock: could not decode block %d (streams=%d): %w",
			i, n, io.ErrUnexpectedEOF,
		)
	}
	blk.resize(n)

	var (
		buf = p[beg : beg+size]
		idx = 0
		u16 = func() uint16 {
			v := binary.LittleEndian.Uint16(buf[idx:])
			idx += 2
			return v
		}
	)

	for t := 0; t < SamplesPerBlock; t++ {
		if hdr := binary.LittleEndian.Uint64(buf[idx:]); hdr != Magic {
			return fmt.Errorf(
				"datablock: block %d, sample %d (hdr=0x%016x): %w",
				i, t, hdr, ErrBadMagic,
			)
		}
		idx += 8
		blk.Stamps[t] = binary.LittleEndian.Uint32(buf[idx:])
		idx += 4

		for ch := 0; ch < NumAux; ch++ {
			for s := 0; s < n; s++ {
				blk.Aux[s][ch][t] = u16()
			}
		}
		for ch := 0; ch < NumAmplifiers; ch++ {
			for s := 0; s < n; s++ {
				blk.Amplifier[s][ch][t] = u16()
			}
		}
		idx += 2 * n // filler word, one per stream

		for ch := range blk.BoardADC {
			blk.BoardADC[ch][t] = u16()
		}
		blk.TTLIn[t] = u16()
		blk.TTLOut[t] = u16()
	}

	return nil
}

// AppendRaw appends the USB pipe representation of the block to dst.
// It is the inverse of Decode.
func AppendRaw(dst []byte, blk *Block) []byte {
	var (
		n   = blk.NumStreams
		buf [8]byte
		u16 = func(v uint16) {
			binary.LittleEndian.PutUint16(buf[:2], v)
			dst = append(dst, buf[:2]...)
		}
	)
	for t := 0; t < SamplesPerBlock; t++ {
		binary.LittleEndian.PutUint64(buf[:8], Magic)
		dst = append(dst, buf[:8]...)
		binary.LittleEndian.PutUint32(buf[:4], blk.Stamps[t])
		dst = append(dst, buf[:4]...)
		for ch := 0; ch < NumAux; ch++ {
			for s := 0; s < n; s++ {
				u16(blk.Aux[s][ch][t])
			}
		}
		for ch := 0; ch < NumAmplifiers; ch++ {
			for s := 0; s < n; s++ {
				u16(blk.Amplifier[s][ch][t])
			}
		}
		for s := 0; s < n; s++ {
			u16(0)
		}
		for ch := range blk.BoardADC {
			u16(blk.BoardADC[ch][t])
		}
		u16(blk.TTLIn[t])
		u16(blk.TTLOut[t])
	}
	return dst
}

// Microvolts converts a raw amplifier sample to microvolts.
func Microvolts(raw uint16) float64 {
	return 0.195 * (float64(raw) - 32768)
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datablock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Encoder writes data blocks as fixed-size records to an output stream.
// All records written by an Encoder share the same geometry.
type Encoder struct {
	w   io.Writer
	n   int // number of data streams
	buf []byte
	err error
}

// NewEncoder returns a new Encoder writing records for n data streams to w.
func NewEncoder(w io.Writer, n int) *Encoder {
	return &Encoder{
		w:   w,
		n:   n,
		buf: make([]byte, RecordSize(n)),
	}
}

// Encode serializes one data block.
func (enc *Encoder) Encode(blk *Block) error {
	if enc.err != nil {
		return enc.err
	}
	if blk.NumStreams != enc.n {
		return fmt.Errorf(
			"datablock: invalid block geometry (streams=%d, want=%d)",
			blk.NumStreams, enc.n,
		)
	}

	var (
		p   = enc.buf
		idx = 0
		u16 = func(v uint16) {
			binary.LittleEndian.PutUint16(p[idx:], v)
			idx += 2
		}
	)
	for t := 0; t < SamplesPerBlock; t++ {
		binary.LittleEndian.PutUint32(p[idx:], blk.Stamps[t])
		idx += 4
		for ch := 0; ch < NumAmplifiers; ch++ {
			for s := 0; s < enc.n; s++ {
				u16(blk.Amplifier[s][ch][t])
			}
		}
		for ch := 0; ch < NumAux; ch++ {
			for s := 0; s < enc.n; s++ {
				u16(blk.Aux[s][ch][t])
			}
		}
		for ch := range blk.BoardADC {
			u16(blk.BoardADC[ch][t])
		}
		u16(blk.TTLIn[t])
		u16(blk.TTLOut[t])
	}

	_, enc.err = enc.w.Write(p)
	if enc.err != nil {
		enc.err = fmt.Errorf("datablock: could not write record: %w", enc.err)
	}
	return enc.err
}

// Decoder reads fixed-size data block records from an input stream.
type Decoder struct {
	r   io.Reader
	n   int
	buf []byte
}

// NewDecoder returns a new Decoder reading records for n data streams from r.
func NewDecoder(r io.Reader, n int) *Decoder {
	return &Decoder{
		r:   r,
		n:   n,
		buf: make([]byte, RecordSize(n)),
	}
}

// Decode reads the next record into blk.
// Decode returns io.EOF when no more records are available.
func (dec *Decoder) Decode(blk *Block) error {
	_, err := io.ReadFull(dec.r, dec.buf)
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case err != nil:
		return fmt.Errorf("datablock: could not read record: %w", err)
	}

	blk.resize(dec.n)
	var (
		p   = dec.buf
		idx = 0
		u16 = func() uint16 {
			v := binary.LittleEndian.Uint16(p[idx:])
			idx += 2
			return v
		}
	)
	for t := 0; t < SamplesPerBlock; t++ {
		blk.Stamps[t] = binary.LittleEndian.Uint32(p[idx:])
		idx += 4
		for ch := 0; ch < NumAmplifiers; ch++ {
			for s := 0; s < dec.n; s++ {
				blk.Amplifier[s][ch][t] = u16()
			}
		}
		for ch := 0; ch < NumAux; ch++ {
			for s := 0; s < dec.n; s++ {
				blk.Aux[s][ch][t] = u16()
			}
		}
		for ch := range blk.BoardADC {
			blk.BoardADC[ch][t] = u16()
		}
		blk.TTLIn[t] = u16()
		blk.TTLOut[t] = u16()
	}
	return nil
}

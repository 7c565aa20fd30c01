// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/go-lpc/rhythm/internal/regs"
)

// MaxNumDataStreams is the number of USB data streams of a Rhythm board.
const MaxNumDataStreams = regs.MaxNumDataStreams

// DataSource identifies the SPI port and MISO line feeding a data stream.
// The Ddr variants carry the second sample of double-data-rate chips.
type DataSource int

const (
	PortA1 DataSource = iota
	PortA2
	PortB1
	PortB2
	PortC1
	PortC2
	PortD1
	PortD2
	PortA1Ddr
	PortA2Ddr
	PortB1Ddr
	PortB2Ddr
	PortC1Ddr
	PortC2Ddr
	PortD1Ddr
	PortD2Ddr
)

func (src DataSource) String() string {
	if src < PortA1 || src > PortD2Ddr {
		return fmt.Sprintf("DataSource(%d)", int(src))
	}
	i := int(src) % 8
	s := fmt.Sprintf("Port%c%d", 'A'+i/2, 1+i%2)
	if src >= PortA1Ddr {
		s += "Ddr"
	}
	return s
}

// ParseDataSource parses a data source name such as "PortB2" or "PortC1Ddr".
func ParseDataSource(s string) (DataSource, error) {
	for src := PortA1; src <= PortD2Ddr; src++ {
		if strings.EqualFold(s, src.String()) {
			return src, nil
		}
	}
	return 0, errParam("parse-data-source", "data source", s)
}

// Port returns the SPI port the data source is attached to.
func (src DataSource) Port() Port {
	return Port((int(src) % 8) / 2)
}

// StreamConfig is the set of enabled data streams and their sources.
// The number of enabled streams fixes the size of data blocks.
type StreamConfig struct {
	mask    uint32
	sources [MaxNumDataStreams]DataSource
}

// NumEnabled returns the number of enabled data streams.
func (sc StreamConfig) NumEnabled() int { return bits.OnesCount32(sc.mask) }

// Enabled reports whether the i-th data stream is enabled.
func (sc StreamConfig) Enabled(i int) bool {
	if i < 0 || i >= MaxNumDataStreams {
		return false
	}
	return sc.mask&(1<<uint(i)) != 0
}

// Mask returns the bitmap of enabled data streams.
func (sc StreamConfig) Mask() uint32 { return sc.mask }

// Source returns the data source assigned to the i-th data stream.
func (sc StreamConfig) Source(i int) DataSource { return sc.sources[i] }

// Streams returns the current data stream configuration.
func (brd *Board) Streams() StreamConfig { return brd.streams }

// NumEnabledDataStreams returns the number of enabled data streams.
func (brd *Board) NumEnabledDataStreams() int { return brd.streams.NumEnabled() }

// SetDataSource routes a data source to a data stream.
func (brd *Board) SetDataSource(stream int, src DataSource) error {
	const op = "set-data-source"
	switch {
	case stream < 0 || stream >= MaxNumDataStreams:
		return errParam(op, "data stream", stream)
	case src < PortA1 || src > PortD2Ddr:
		return errParam(op, "data source", int(src))
	}

	ep := uint8(regs.WireInDataStreamSel1234)
	if stream >= 4 {
		ep = regs.WireInDataStreamSel5678
	}
	shift := 4 * uint32(stream%4)
	err := brd.setWire(ep, uint32(src)<<shift, 0xf<<shift)
	if err != nil {
		return fmt.Errorf("board: could not set data source of stream %d: %w", stream, err)
	}
	brd.streams.sources[stream] = src
	brd.touch()
	return nil
}

// EnableDataStream enables or disables a data stream.
// Enabling an enabled stream, or disabling a disabled one, is a no-op.
// The stream configuration can not change while the board is running.
func (brd *Board) EnableDataStream(stream int, enable bool) error {
	if stream < 0 || stream >= MaxNumDataStreams {
		return errParam("enable-data-stream", "data stream", stream)
	}
	if brd.streams.Enabled(stream) == enable {
		return nil
	}
	if brd.state == Running {
		return fmt.Errorf(
			"board: could not change data stream %d while %v: %w",
			stream, brd.state, ErrInvalidState,
		)
	}

	bit := uint32(1) << uint(stream)
	var v uint32
	if enable {
		v = bit
	}
	err := brd.setWire(regs.WireInDataStreamEn, v, bit)
	if err != nil {
		return fmt.Errorf("board: could not enable data stream %d: %w", stream, err)
	}
	brd.streams.mask = (brd.streams.mask &^ bit) | v
	brd.touch()
	return nil
}

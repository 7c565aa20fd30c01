// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"fmt"

	"github.com/go-lpc/rhythm/internal/regs"
)

const (
	NumDACs       = 8 // AD5662 DAC channels
	NumManualDACs = 2
)

var (
	dacSourceWires = [NumDACs]uint8{
		regs.WireInDacSource1, regs.WireInDacSource2,
		regs.WireInDacSource3, regs.WireInDacSource4,
		regs.WireInDacSource5, regs.WireInDacSource6,
		regs.WireInDacSource7, regs.WireInDacSource8,
	}
	dacManualWires = [NumManualDACs]uint8{
		regs.WireInDacManual1, regs.WireInDacManual2,
	}
)

// SetDspSettle enables the amplifier fast settle function, applied
// while CONVERT commands are sent.
func (brd *Board) SetDspSettle(enable bool) error {
	var v uint32
	if enable {
		v = regs.ResetRunDspSettle
	}
	err := brd.setWire(regs.WireInResetRun, v, regs.ResetRunDspSettle)
	if err != nil {
		return fmt.Errorf("board: could not set DSP settle: %w", err)
	}
	brd.touch()
	return nil
}

// ClearTTLOut sets all 16 TTL outputs low.
func (brd *Board) ClearTTLOut() error {
	return brd.SetTTLOut(0)
}

// SetTTLOut sets the 16 TTL outputs. Bit i drives output i.
func (brd *Board) SetTTLOut(v uint16) error {
	err := brd.setWire(regs.WireInTtlOut, uint32(v), 0xffff)
	if err != nil {
		return fmt.Errorf("board: could not set TTL outputs: %w", err)
	}
	return nil
}

// TTLIn returns the state of the 16 TTL inputs. Bit i holds input i.
func (brd *Board) TTLIn() (uint16, error) {
	v, err := brd.wireOut(regs.WireOutTtlIn)
	if err != nil {
		return 0, fmt.Errorf("board: could not read TTL inputs: %w", err)
	}
	return uint16(v), nil
}

// SetLedDisplay lights the 8 board LEDs. Bit i drives LED i.
func (brd *Board) SetLedDisplay(v uint8) error {
	err := brd.setWire(regs.WireInLedDisplay, uint32(v), 0xff)
	if err != nil {
		return fmt.Errorf("board: could not set LEDs: %w", err)
	}
	return nil
}

// EnableDac enables or disables a DAC channel.
func (brd *Board) EnableDac(dac int, enable bool) error {
	if dac < 0 || dac >= NumDACs {
		return errParam("enable-dac", "DAC channel", dac)
	}
	var v uint32
	if enable {
		v = regs.DacSourceEnable
	}
	err := brd.setWire(dacSourceWires[dac], v, regs.DacSourceEnable)
	if err != nil {
		return fmt.Errorf("board: could not enable DAC %d: %w", dac, err)
	}
	return nil
}

// SelectDacDataStream routes a data stream to a DAC channel.
// Streams 8 and 9 select the manual DAC values.
func (brd *Board) SelectDacDataStream(dac, stream int) error {
	const op = "select-dac-data-stream"
	switch {
	case dac < 0 || dac >= NumDACs:
		return errParam(op, "DAC channel", dac)
	case stream < 0 || stream > MaxNumDataStreams+NumManualDACs-1:
		return errParam(op, "data stream", stream)
	}
	err := brd.setWire(dacSourceWires[dac], uint32(stream)<<regs.ShiftDacStream, regs.DacSourceStream)
	if err != nil {
		return fmt.Errorf("board: could not select data stream of DAC %d: %w", dac, err)
	}
	return nil
}

// SelectDacDataChannel selects the amplifier channel, within its data
// stream, output by a DAC channel.
func (brd *Board) SelectDacDataChannel(dac, channel int) error {
	const op = "select-dac-data-channel"
	switch {
	case dac < 0 || dac >= NumDACs:
		return errParam(op, "DAC channel", dac)
	case channel < 0 || channel > 31:
		return errParam(op, "data channel", channel)
	}
	err := brd.setWire(dacSourceWires[dac], uint32(channel), regs.DacSourceChannel)
	if err != nil {
		return fmt.Errorf("board: could not select data channel of DAC %d: %w", dac, err)
	}
	return nil
}

// SetDacManual sets the value output by a manual DAC.
// 32768 is the mid-range value (0 V).
func (brd *Board) SetDacManual(dac, value int) error {
	const op = "set-dac-manual"
	switch {
	case dac < 0 || dac >= NumManualDACs:
		return errParam(op, "manual DAC", dac)
	case value < 0 || value > 0xffff:
		return errParam(op, "value", value)
	}
	err := brd.setWire(dacManualWires[dac], uint32(value), 0xffff)
	if err != nil {
		return fmt.Errorf("board: could not set manual DAC %d: %w", dac, err)
	}
	return nil
}

// SetDacGain scales the DAC outputs by 2^gain.
func (brd *Board) SetDacGain(gain int) error {
	if gain < 0 || gain > 7 {
		return errParam("set-dac-gain", "gain", gain)
	}
	err := brd.setWire(regs.WireInResetRun, uint32(gain)<<regs.ShiftDacGain, regs.ResetRunDacGain)
	if err != nil {
		return fmt.Errorf("board: could not set DAC gain: %w", err)
	}
	return nil
}

// SetAudioNoiseSuppress squelches the audio DACs (0 and 1) between
// -16*v and +16*v LSBs.
func (brd *Board) SetAudioNoiseSuppress(v int) error {
	if v < 0 || v > 127 {
		return errParam("set-audio-noise-suppress", "noise suppression", v)
	}
	err := brd.setWire(regs.WireInResetRun, uint32(v)<<regs.ShiftNoiseSuppress, regs.ResetRunNoiseSuppress)
	if err != nil {
		return fmt.Errorf("board: could not set audio noise suppression: %w", err)
	}
	return nil
}

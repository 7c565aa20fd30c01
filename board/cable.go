// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"fmt"
	"math"

	"github.com/go-lpc/rhythm/internal/regs"
)

const (
	lightSpeed = 299792458.0      // m/s
	cableSpeed = 0.67 * lightSpeed // m/s

	lvdsOutDelay = 1.9e-9  // FPGA LVDS output pin
	chipDelay    = 9.0e-9  // RHD2000 SCLK to MISO
	lvdsInDelay  = 1.4e-9  // FPGA LVDS input pin
	misoSettle   = 10.0e-9 // MISO settling margin before sampling

	fixedDelay = lvdsOutDelay + chipDelay + lvdsInDelay + misoSettle

	metersPerFoot = 0.3048

	// MaxCableDelay is the largest MISO sampling delay, in clock steps.
	MaxCableDelay = 15
)

// clockStep returns the period of the clock sampling the MISO lines.
func clockStep(r SampleRate) float64 {
	return 1 / (regs.ClocksPerSample * r.Hz())
}

// CableDelay returns the MISO sampling delay, in clock steps, suited for
// a cable of the provided one-way length at the provided sample rate.
// The delay is never less than 1.
func CableDelay(r SampleRate, meters float64) (int, error) {
	const op = "cable-delay"
	switch {
	case !r.Valid():
		return 0, errParam(op, "sample rate", int(r))
	case meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0):
		return 0, errParam(op, "cable length", meters)
	}

	t := 2*meters/cableSpeed + fixedDelay
	steps := math.Ceil(t / clockStep(r))
	if steps > MaxCableDelay {
		return 0, errParam(op, fmt.Sprintf("cable length at %v", r), meters)
	}
	delay := int(steps)
	if delay < 1 {
		delay = 1
	}
	return delay, nil
}

// CableLength returns the estimated one-way length in meters of a cable
// sampled with the provided delay at the provided sample rate.
// The estimate is never negative.
func CableLength(r SampleRate, delay int) (float64, error) {
	const op = "cable-length"
	switch {
	case !r.Valid():
		return 0, errParam(op, "sample rate", int(r))
	case delay < 0 || delay > MaxCableDelay:
		return 0, errParam(op, "cable delay", delay)
	}
	dist := cableSpeed * (float64(delay)*clockStep(r) - fixedDelay)
	if dist < 0 {
		dist = 0
	}
	return dist / 2, nil
}

// cable is the MISO sampling configuration of an SPI port.
type cable struct {
	delay  int
	meters float64
	set    bool // a delay was programmed
	length bool // the delay was derived from a cable length
	stale  bool // the sample rate changed since the delay was programmed
}

// SetCableDelay programs the MISO sampling delay of an SPI port, in
// clock steps. Other ports are left untouched.
func (brd *Board) SetCableDelay(port Port, delay int) error {
	err := brd.setCableDelay(port, delay)
	if err != nil {
		return err
	}
	brd.cables[port].length = false
	return nil
}

func (brd *Board) setCableDelay(port Port, delay int) error {
	const op = "set-cable-delay"
	switch {
	case !port.valid():
		return errParam(op, "port", int(port))
	case delay < 0 || delay > MaxCableDelay:
		return errParam(op, "cable delay", delay)
	}

	shift := 4 * uint32(port)
	err := brd.setWire(regs.WireInMisoDelay, uint32(delay)<<shift, 0xf<<shift)
	if err != nil {
		return fmt.Errorf("board: could not set cable delay of %v: %w", port, err)
	}
	brd.cables[port].delay = delay
	brd.cables[port].set = true
	brd.cables[port].stale = false
	brd.touch()
	return nil
}

// SetCableLengthMeters programs the MISO sampling delay of an SPI port
// from the one-way length of its cable, at the current sample rate.
func (brd *Board) SetCableLengthMeters(port Port, meters float64) error {
	if !port.valid() {
		return errParam("set-cable-length", "port", int(port))
	}
	delay, err := CableDelay(brd.rate, meters)
	if err != nil {
		return err
	}
	err = brd.setCableDelay(port, delay)
	if err != nil {
		return err
	}
	brd.cables[port].length = true
	brd.cables[port].meters = meters
	brd.msg.Debugf("%v: cable length %.2f m -> delay %d", port, meters, delay)
	return nil
}

// SetCableLengthFeet is like SetCableLengthMeters, with a length in feet.
func (brd *Board) SetCableLengthFeet(port Port, feet float64) error {
	return brd.SetCableLengthMeters(port, metersPerFoot*feet)
}

// EstimateCableLengthMeters returns the cable length matching the
// provided delay at the current sample rate.
func (brd *Board) EstimateCableLengthMeters(delay int) (float64, error) {
	return CableLength(brd.rate, delay)
}

// EstimateCableLengthFeet is like EstimateCableLengthMeters, in feet.
func (brd *Board) EstimateCableLengthFeet(delay int) (float64, error) {
	m, err := CableLength(brd.rate, delay)
	return m / metersPerFoot, err
}

// CableDelaySetting returns the MISO sampling delay last programmed for
// an SPI port.
func (brd *Board) CableDelaySetting(port Port) int {
	if !port.valid() {
		return 0
	}
	return brd.cables[port].delay
}

func (brd *Board) markCablesStale() {
	for i := range brd.cables {
		if brd.cables[i].set {
			brd.cables[i].stale = true
		}
	}
}

// StaleCableDelays returns the ports whose delay was programmed before
// the last sample rate change.
func (brd *Board) StaleCableDelays() []Port {
	var ports []Port
	for i, c := range brd.cables {
		if c.stale {
			ports = append(ports, Port(i))
		}
	}
	return ports
}

// RefreshCableDelays recomputes the delays of the ports configured with
// a cable length, for the current sample rate. Ports configured with an
// explicit delay are left stale.
func (brd *Board) RefreshCableDelays() error {
	for i, c := range brd.cables {
		port := Port(i)
		if !c.stale {
			continue
		}
		if !c.length {
			brd.msg.Warnf("%v: explicit cable delay %d not refreshed for %v", port, c.delay, brd.rate)
			continue
		}
		err := brd.SetCableLengthMeters(port, c.meters)
		if err != nil {
			return fmt.Errorf("board: could not refresh cable delay of %v: %w", port, err)
		}
	}
	return nil
}

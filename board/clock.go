// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-lpc/rhythm/internal/regs"
)

// SampleRate is a per-channel amplifier sampling rate, in samples per second.
type SampleRate int

const (
	SampleRate1000  SampleRate = 1000
	SampleRate1250  SampleRate = 1250
	SampleRate1500  SampleRate = 1500
	SampleRate2000  SampleRate = 2000
	SampleRate2500  SampleRate = 2500
	SampleRate3000  SampleRate = 3000
	SampleRate3333  SampleRate = 3333 // 10000/3 S/s
	SampleRate4000  SampleRate = 4000
	SampleRate5000  SampleRate = 5000
	SampleRate6250  SampleRate = 6250
	SampleRate8000  SampleRate = 8000
	SampleRate10000 SampleRate = 10000
	SampleRate12500 SampleRate = 12500
	SampleRate15000 SampleRate = 15000
	SampleRate20000 SampleRate = 20000
	SampleRate25000 SampleRate = 25000
	SampleRate30000 SampleRate = 30000
)

// synthesizer parameters: f = 100 MHz * M/D, with 2800 clock cycles per sample.
var clockParams = map[SampleRate][2]uint32{
	SampleRate1000:  {7, 125},
	SampleRate1250:  {7, 100},
	SampleRate1500:  {21, 250},
	SampleRate2000:  {14, 125},
	SampleRate2500:  {35, 250},
	SampleRate3000:  {21, 125},
	SampleRate3333:  {14, 75},
	SampleRate4000:  {28, 125},
	SampleRate5000:  {7, 25},
	SampleRate6250:  {7, 20},
	SampleRate8000:  {112, 250},
	SampleRate10000: {14, 25},
	SampleRate12500: {7, 10},
	SampleRate15000: {21, 25},
	SampleRate20000: {28, 25},
	SampleRate25000: {35, 25},
	SampleRate30000: {42, 25},
}

// SampleRates returns the supported sample rates, in increasing order.
func SampleRates() []SampleRate {
	return []SampleRate{
		SampleRate1000, SampleRate1250, SampleRate1500, SampleRate2000,
		SampleRate2500, SampleRate3000, SampleRate3333, SampleRate4000,
		SampleRate5000, SampleRate6250, SampleRate8000, SampleRate10000,
		SampleRate12500, SampleRate15000, SampleRate20000, SampleRate25000,
		SampleRate30000,
	}
}

// Valid reports whether r is one of the supported sample rates.
func (r SampleRate) Valid() bool {
	_, ok := clockParams[r]
	return ok
}

// Hz returns the exact sampling frequency.
func (r SampleRate) Hz() float64 {
	if r == SampleRate3333 {
		return 10000.0 / 3.0
	}
	return float64(r)
}

func (r SampleRate) String() string {
	if !r.Valid() {
		return fmt.Sprintf("SampleRate(%d)", int(r))
	}
	return strconv.FormatFloat(math.Round(r.Hz()*100)/100, 'f', -1, 64) + " S/s"
}

// ParseSampleRate parses a sample rate given in samples per second.
// A "k" suffix multiplies the value by 1000.
func ParseSampleRate(s string) (SampleRate, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "S/s"))
	mul := 1.0
	if v := strings.TrimSuffix(s, "k"); v != s {
		s = v
		mul = 1000
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("board: could not parse sample rate %q: %w", s, err)
	}
	r := SampleRate(f * mul)
	if !r.Valid() {
		return 0, errParam("parse-sample-rate", "sample rate", s)
	}
	return r, nil
}

// ClockParameters returns the (M,D) synthesizer parameters for the
// provided sample rate.
func ClockParameters(r SampleRate) (m, d uint32, err error) {
	p, ok := clockParams[r]
	if !ok {
		return 0, 0, errParam("set-sample-rate", "sample rate", int(r))
	}
	return p[0], p[1], nil
}

// SampleRate returns the last successfully committed sample rate.
func (brd *Board) SampleRate() SampleRate { return brd.rate }

// SetSampleRate reprograms the FPGA clock synthesizer.
//
// The board waits for the synthesizer to be ready, loads the new (M,D)
// parameters, then waits for the data clock to lock again. The new rate
// is only committed once the clock is locked. Cable delays programmed
// for the previous rate become stale and should be refreshed with
// RefreshCableDelays.
func (brd *Board) SetSampleRate(ctx context.Context, r SampleRate) error {
	m, d, err := ClockParameters(r)
	if err != nil {
		return err
	}

	switch brd.state {
	case Running, Flushing:
		return fmt.Errorf("board: could not set sample rate while %v: %w", brd.state, ErrInvalidState)
	}

	err = brd.waitClock(ctx, "clock synthesizer", regs.O_DCM_PROG_DONE)
	if err != nil {
		return fmt.Errorf("board: could not set sample rate to %v: %w", r, err)
	}

	err = brd.setWire(regs.WireInDataFreqPll, regs.ClockWord(m, d), 0xffffffff)
	if err != nil {
		return fmt.Errorf("board: could not load clock parameters: %w", err)
	}
	err = brd.t.ActivateTriggerIn(regs.TrigInDcmProg, 0)
	if err != nil {
		return fmt.Errorf("board: could not program clock synthesizer: %w", err)
	}

	err = brd.waitClock(ctx, "data clock lock", regs.O_DATA_CLK_LOCKED)
	if err != nil {
		return fmt.Errorf("board: could not set sample rate to %v: %w", r, err)
	}

	brd.rate = r
	brd.markCablesStale()
	brd.touch()
	brd.msg.Debugf("sample rate set to %v (M=%d, D=%d)", r, m, d)
	return nil
}

// waitClock polls the clock status register until the provided bit is set.
// maxPolls returns the number of polls allowed by the lock timeout,
// or -1 to poll forever.
func (brd *Board) maxPolls() int {
	if brd.cfg.timeout <= 0 {
		return -1
	}
	if brd.cfg.poll > 0 {
		return int(brd.cfg.timeout / brd.cfg.poll)
	}
	return int(brd.cfg.timeout)
}

func (brd *Board) waitClock(ctx context.Context, what string, bit uint32) error {
	maxPolls := brd.maxPolls()
	for cnt := 0; ; cnt++ {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("could not wait for %s: %w", what, err)
		}
		v, err := brd.wireOut(regs.WireOutDataClkLocked)
		if err != nil {
			return fmt.Errorf("could not read %s status: %w", what, err)
		}
		if v&bit != 0 {
			return nil
		}
		if maxPolls >= 0 && cnt >= maxPolls {
			brd.metrics.timeouts.Inc()
			brd.msg.Errorf("%s not ready after %d polls", what, cnt+1)
			return fmt.Errorf("%s not ready after %d polls: %w", what, cnt+1, ErrClockLockTimeout)
		}
		brd.cfg.sleep(brd.cfg.poll)
	}
}

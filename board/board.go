// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board controls a Rhythm FPGA acquisition board driving up to
// four SPI ports of RHD2000 amplifier chips, and reads the data blocks
// it streams back over USB.
package board // import "github.com/go-lpc/rhythm/board"

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/internal/regs"
	"github.com/prometheus/client_golang/prometheus"
)

// State is the host-side view of the acquisition state machine.
type State int

const (
	Idle State = iota
	Configuring
	Running
	Stopped
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Flushing:
		return "flushing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type config struct {
	msg     *log.Logger
	poll    time.Duration
	timeout time.Duration
	bufsize int
	sleep   func(time.Duration)
	cmds    CommandSet
	reg     prometheus.Registerer
}

func newConfig() config {
	return config{
		msg:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "rhythm"}),
		poll:    1 * time.Millisecond,
		timeout: 5 * time.Second,
		bufsize: regs.USBBufferSize,
		sleep:   time.Sleep,
		cmds:    DefaultCommandSet,
	}
}

// Option configures a Board.
type Option func(*config)

// WithLogger sets the logger used by the board.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithPollInterval sets the delay between two polls of the clock
// synthesizer status, or of the FIFO while recording.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.poll = d
	}
}

// WithLockTimeout bounds the time spent waiting for the clock synthesizer.
// A zero duration waits forever.
func WithLockTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithBufferSize sets the size in bytes of the USB transfer buffer.
func WithBufferSize(n int) Option {
	return func(cfg *config) {
		cfg.bufsize = n
	}
}

// WithMetrics registers the board metrics with the provided registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.reg = reg
	}
}

// WithCommandSet sets the command words recognized as CALIBRATE and CLEAR.
func WithCommandSet(cs CommandSet) Option {
	return func(cfg *config) {
		cfg.cmds = cs
	}
}

// WithSleep replaces the function used to pause between polls.
func WithSleep(f func(time.Duration)) Option {
	return func(cfg *config) {
		cfg.sleep = f
	}
}

// Board is a Rhythm FPGA board.
//
// A Board is not safe for concurrent use.
type Board struct {
	t   Transport
	msg *log.Logger
	cfg config

	state   State
	rate    SampleRate
	streams StreamConfig
	cables  [NumPorts]cable

	buf     []byte // USB transfer buffer
	metrics *metrics
}

// New creates a board driven through the provided transport.
// The FPGA is assumed to boot with a 30 kS/s sample rate and no
// enabled data stream.
func New(t Transport, opts ...Option) (*Board, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufsize <= 0 || cfg.bufsize%2 != 0 {
		return nil, errParam("new", "USB buffer size", cfg.bufsize)
	}
	if cfg.poll < 0 {
		return nil, errParam("new", "poll interval", cfg.poll)
	}

	brd := &Board{
		t:       t,
		msg:     cfg.msg,
		cfg:     cfg,
		state:   Idle,
		rate:    SampleRate30000,
		buf:     make([]byte, cfg.bufsize),
		metrics: newMetrics(cfg.reg),
	}
	return brd, nil
}

// State returns the current acquisition state.
func (brd *Board) State() State { return brd.state }

// Commands returns the command set used to inspect command words.
func (brd *Board) Commands() CommandSet { return brd.cfg.cmds }

func (brd *Board) touch() {
	switch brd.state {
	case Idle, Stopped:
		brd.state = Configuring
	}
}

func (brd *Board) setWire(ep uint8, v, mask uint32) error {
	err := brd.t.SetWireInValue(ep, v, mask)
	if err != nil {
		return fmt.Errorf("could not set wire-in 0x%02x: %w", ep, err)
	}
	err = brd.t.UpdateWireIns()
	if err != nil {
		return fmt.Errorf("could not update wire-ins: %w", err)
	}
	return nil
}

func (brd *Board) wireOut(ep uint8) (uint32, error) {
	err := brd.t.UpdateWireOuts()
	if err != nil {
		return 0, fmt.Errorf("could not update wire-outs: %w", err)
	}
	return brd.t.WireOutValue(ep), nil
}

// Initialize brings the board to a known default state: board reset,
// 30 kS/s sample rate, aux command slots pointing at bank 0 with empty
// lists, continuous run mode, 3 ft cables, data stream i reading
// port (i%4) MISO(i/4), only stream 0 enabled and DACs disabled.
func (brd *Board) Initialize(ctx context.Context) error {
	err := brd.ResetBoard()
	if err != nil {
		return fmt.Errorf("board: could not initialize board: %w", err)
	}

	err = brd.SetSampleRate(ctx, SampleRate30000)
	if err != nil {
		return fmt.Errorf("board: could not initialize board: %w", err)
	}

	for _, slot := range []AuxCmdSlot{AuxCmd1, AuxCmd2, AuxCmd3} {
		for port := PortA; port <= PortD; port++ {
			err = brd.SelectAuxCommandBank(port, slot, 0)
			if err != nil {
				return fmt.Errorf("board: could not initialize aux command bank: %w", err)
			}
		}
		err = brd.SelectAuxCommandLength(slot, 0, 0)
		if err != nil {
			return fmt.Errorf("board: could not initialize aux command length: %w", err)
		}
	}

	err = brd.SetContinuousRunMode(true)
	if err != nil {
		return fmt.Errorf("board: could not initialize run mode: %w", err)
	}
	err = brd.SetMaxTimeStep(0xffffffff)
	if err != nil {
		return fmt.Errorf("board: could not initialize max time step: %w", err)
	}

	for port := PortA; port <= PortD; port++ {
		err = brd.SetCableLengthFeet(port, 3)
		if err != nil {
			return fmt.Errorf("board: could not initialize cable length: %w", err)
		}
	}

	err = brd.SetDspSettle(false)
	if err != nil {
		return fmt.Errorf("board: could not initialize DSP settle: %w", err)
	}

	srcs := [MaxNumDataStreams]DataSource{
		PortA1, PortB1, PortC1, PortD1,
		PortA2, PortB2, PortC2, PortD2,
	}
	for i, src := range srcs {
		err = brd.SetDataSource(i, src)
		if err != nil {
			return fmt.Errorf("board: could not initialize data source: %w", err)
		}
	}

	// start with only stream 0 enabled, whatever the FPGA held before.
	err = brd.setWire(regs.WireInDataStreamEn, 0x01, 0xff)
	if err != nil {
		return fmt.Errorf("board: could not initialize data streams: %w", err)
	}
	brd.streams.mask = 0x01

	err = brd.ClearTTLOut()
	if err != nil {
		return fmt.Errorf("board: could not initialize TTL outputs: %w", err)
	}

	for i := 0; i < NumDACs; i++ {
		err = brd.EnableDac(i, false)
		if err == nil {
			err = brd.SelectDacDataStream(i, 0)
		}
		if err == nil {
			err = brd.SelectDacDataChannel(i, 0)
		}
		if err != nil {
			return fmt.Errorf("board: could not initialize DAC %d: %w", i, err)
		}
	}

	for i := 0; i < NumManualDACs; i++ {
		err = brd.SetDacManual(i, 32768)
		if err != nil {
			return fmt.Errorf("board: could not initialize manual DAC %d: %w", i, err)
		}
	}
	err = brd.SetDacGain(0)
	if err != nil {
		return fmt.Errorf("board: could not initialize DAC gain: %w", err)
	}
	err = brd.SetAudioNoiseSuppress(0)
	if err != nil {
		return fmt.Errorf("board: could not initialize noise suppression: %w", err)
	}

	brd.msg.Infof("board initialized (rate=%v, streams=%d)", brd.rate, brd.streams.NumEnabled())
	return nil
}

// ResetBoard pulses the FPGA reset line. The FIFO is emptied and the
// host-side state goes back to Idle.
func (brd *Board) ResetBoard() error {
	err := brd.setWire(regs.WireInResetRun, regs.ResetRunReset, regs.ResetRunReset)
	if err != nil {
		return fmt.Errorf("board: could not assert reset: %w", err)
	}
	err = brd.setWire(regs.WireInResetRun, 0, regs.ResetRunReset)
	if err != nil {
		return fmt.Errorf("board: could not release reset: %w", err)
	}
	brd.state = Idle
	return nil
}

// SetContinuousRunMode selects whether Run acquires until stopped or
// only up to the maximum time step.
func (brd *Board) SetContinuousRunMode(continuous bool) error {
	var v uint32
	if continuous {
		v = regs.ResetRunContinuous
	}
	err := brd.setWire(regs.WireInResetRun, v, regs.ResetRunContinuous)
	if err != nil {
		return fmt.Errorf("board: could not set continuous run mode: %w", err)
	}
	brd.touch()
	return nil
}

// SetMaxTimeStep sets the number of samples acquired by a
// non-continuous run.
func (brd *Board) SetMaxTimeStep(n uint32) error {
	err := brd.t.SetWireInValue(regs.WireInMaxTimeStepLsb, n&0xffff, 0xffff)
	if err == nil {
		err = brd.t.SetWireInValue(regs.WireInMaxTimeStepMsb, n>>16, 0xffff)
	}
	if err == nil {
		err = brd.t.UpdateWireIns()
	}
	if err != nil {
		return fmt.Errorf("board: could not set max time step: %w", err)
	}
	brd.touch()
	return nil
}

// Run starts the SPI sequencer.
func (brd *Board) Run() error {
	if brd.state == Flushing {
		return fmt.Errorf("board: could not start run while %v: %w", brd.state, ErrInvalidState)
	}
	err := brd.t.ActivateTriggerIn(regs.TrigInSpiStart, 0)
	if err != nil {
		return fmt.Errorf("board: could not start run: %w", err)
	}
	brd.state = Running
	brd.msg.Debugf("run started (rate=%v, streams=%d)", brd.rate, brd.streams.NumEnabled())
	return nil
}

// Stop ends a continuous run: the board stops acquiring at the next
// sample boundary. Data already in the FIFO must still be read or flushed.
func (brd *Board) Stop() error {
	err := brd.setWire(regs.WireInResetRun, 0, regs.ResetRunContinuous)
	if err != nil {
		return fmt.Errorf("board: could not stop run: %w", err)
	}
	err = brd.SetMaxTimeStep(0)
	if err != nil {
		return fmt.Errorf("board: could not stop run: %w", err)
	}
	brd.state = Stopped
	brd.msg.Debugf("run stopped")
	return nil
}

// IsRunning reports whether the SPI sequencer is running.
// A finished fixed-length run moves the board to the Stopped state.
func (brd *Board) IsRunning() (bool, error) {
	v, err := brd.wireOut(regs.WireOutSpiRunning)
	if err != nil {
		return false, fmt.Errorf("board: could not read run status: %w", err)
	}
	running := v&1 != 0
	if !running && brd.state == Running {
		brd.state = Stopped
	}
	return running, nil
}

// WaitStopped polls the board until the SPI sequencer stops, the lock
// timeout expires or ctx is done.
func (brd *Board) WaitStopped(ctx context.Context) error {
	maxPolls := brd.maxPolls()
	for cnt := 0; ; cnt++ {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("board: could not wait for end of run: %w", err)
		}
		running, err := brd.IsRunning()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if maxPolls >= 0 && cnt >= maxPolls {
			return fmt.Errorf("board: SPI still running after %d polls: %w", cnt+1, ErrInvalidState)
		}
		brd.cfg.sleep(brd.cfg.poll)
	}
}

// CheckBoardID verifies the FPGA is running a Rhythm image.
func (brd *Board) CheckBoardID() error {
	id, err := brd.wireOut(regs.WireOutBoardID)
	if err != nil {
		return fmt.Errorf("board: could not read board ID: %w", err)
	}
	if id != regs.BoardID {
		return fmt.Errorf("board: invalid board ID (got=%d, want=%d)", id, regs.BoardID)
	}
	return nil
}

// BoardVersion returns the version of the Rhythm FPGA image.
func (brd *Board) BoardVersion() (uint32, error) {
	v, err := brd.wireOut(regs.WireOutBoardVersion)
	if err != nil {
		return 0, fmt.Errorf("board: could not read board version: %w", err)
	}
	return v, nil
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakefpga provides an in-memory emulation of a Rhythm FPGA
// behind an Opal Kelly style host interface.
package fakefpga // import "github.com/go-lpc/rhythm/internal/fakefpga"

import (
	"fmt"
	"sync"

	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/regs"
)

// Trigger records a trigger-in activation.
type Trigger struct {
	Ep  uint8
	Bit int
}

// FPGA emulates the register file, command RAM and data FIFO of a
// Rhythm board.
//
// Wire-in values are staged by SetWireInValue and only become visible
// after UpdateWireIns. Wire-out values are snapshotted by UpdateWireOuts.
type FPGA struct {
	mu sync.Mutex

	staged [0x20]uint32
	wires  [0x20]uint32
	outs   [0x40]uint32

	// DcmPolls is the number of wire-out updates needed before the
	// clock synthesizer reports it is ready to be programmed.
	DcmPolls int
	// LockPolls is the number of wire-out updates following a DcmProg
	// trigger that still report an unlocked data clock.
	LockPolls int
	// NeverLock keeps the data clock unlocked forever.
	NeverLock bool

	dcm    int
	lock   int
	locked bool

	Version uint32
	TTLIn   uint32

	running bool
	ram     [regs.NumAuxCmdSlots][regs.NumRAMBanks][regs.RAMDepth]uint16
	fifo    []byte

	// ReadErr, when non-nil, is returned by ReadFromPipeOut.
	ReadErr error

	updates int
	trigs   []Trigger
	reads   []int
}

// New returns a fake FPGA with a locked data clock and an empty FIFO.
func New() *FPGA {
	return &FPGA{
		Version: 1,
		locked:  true,
	}
}

func (dev *FPGA) SetWireInValue(ep uint8, v, mask uint32) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if int(ep) >= len(dev.staged) {
		return fmt.Errorf("fakefpga: invalid wire-in endpoint 0x%02x", ep)
	}
	dev.staged[ep] = (dev.staged[ep] &^ mask) | (v & mask)
	return nil
}

func (dev *FPGA) UpdateWireIns() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.wires = dev.staged
	if dev.wires[regs.WireInResetRun]&regs.ResetRunReset != 0 {
		dev.fifo = dev.fifo[:0]
		dev.running = false
	}
	return nil
}

func (dev *FPGA) UpdateWireOuts() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.updates++
	if dev.running && dev.stopRequested() {
		dev.running = false
	}
	if dev.dcm < dev.DcmPolls {
		dev.dcm++
	}
	if !dev.locked && !dev.NeverLock {
		if dev.lock >= dev.LockPolls {
			dev.locked = true
		}
		dev.lock++
	}

	words := uint32(len(dev.fifo) / 2)
	dev.outs = [0x40]uint32{}
	dev.outs[regs.WireOutNumWordsLsb] = words & 0xffff
	dev.outs[regs.WireOutNumWordsMsb] = words >> 16
	if dev.running {
		dev.outs[regs.WireOutSpiRunning] = 1
	}
	dev.outs[regs.WireOutTtlIn] = dev.TTLIn
	if dev.locked {
		dev.outs[regs.WireOutDataClkLocked] |= regs.O_DATA_CLK_LOCKED
	}
	if dev.dcm >= dev.DcmPolls {
		dev.outs[regs.WireOutDataClkLocked] |= regs.O_DCM_PROG_DONE
	}
	dev.outs[regs.WireOutBoardID] = regs.BoardID
	dev.outs[regs.WireOutBoardVersion] = dev.Version
	return nil
}

// stopRequested reports whether a non-continuous run with a zero max
// time step was committed, which ends a run at the next sample.
func (dev *FPGA) stopRequested() bool {
	return dev.wires[regs.WireInResetRun]&regs.ResetRunContinuous == 0 &&
		dev.wires[regs.WireInMaxTimeStepLsb] == 0 &&
		dev.wires[regs.WireInMaxTimeStepMsb] == 0
}

func (dev *FPGA) WireOutValue(ep uint8) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if int(ep) >= len(dev.outs) {
		return 0
	}
	return dev.outs[ep]
}

func (dev *FPGA) ActivateTriggerIn(ep uint8, bit int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.trigs = append(dev.trigs, Trigger{Ep: ep, Bit: bit})
	switch ep {
	case regs.TrigInDcmProg:
		dev.locked = false
		dev.lock = 0
	case regs.TrigInSpiStart:
		dev.running = true
	case regs.TrigInRamWrite:
		if bit < 0 || bit >= regs.NumAuxCmdSlots {
			return fmt.Errorf("fakefpga: invalid aux command slot %d", bit)
		}
		var (
			bank = dev.wires[regs.WireInCmdRamBank]
			addr = dev.wires[regs.WireInCmdRamAddr]
			data = dev.wires[regs.WireInCmdRamData]
		)
		if bank >= regs.NumRAMBanks || addr >= regs.RAMDepth {
			return fmt.Errorf("fakefpga: invalid RAM location bank=%d addr=%d", bank, addr)
		}
		dev.ram[bit][bank][addr] = uint16(data)
	default:
		return fmt.Errorf("fakefpga: invalid trigger-in endpoint 0x%02x", ep)
	}
	return nil
}

func (dev *FPGA) ReadFromPipeOut(ep uint8, p []byte) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if ep != regs.PipeOutData {
		return 0, fmt.Errorf("fakefpga: invalid pipe-out endpoint 0x%02x", ep)
	}
	dev.reads = append(dev.reads, len(p))
	if dev.ReadErr != nil {
		return 0, dev.ReadErr
	}
	n := copy(p, dev.fifo)
	dev.fifo = dev.fifo[:copy(dev.fifo, dev.fifo[n:])]
	return n, nil
}

// Push appends the wire representation of the provided blocks to the FIFO.
func (dev *FPGA) Push(blks ...*datablock.Block) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for _, blk := range blks {
		dev.fifo = datablock.AppendRaw(dev.fifo, blk)
	}
}

// PushRaw appends raw bytes to the FIFO.
func (dev *FPGA) PushRaw(p []byte) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.fifo = append(dev.fifo, p...)
}

// Halt clears the SPI running flag, as a finished fixed-length run would.
func (dev *FPGA) Halt() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.running = false
}

// Wire returns the committed value of a wire-in endpoint.
func (dev *FPGA) Wire(ep uint8) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.wires[ep]
}

// RAM returns the command word stored at the given location.
func (dev *FPGA) RAM(slot, bank, addr int) uint16 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.ram[slot][bank][addr]
}

// Triggers returns the trigger-in activations seen so far.
func (dev *FPGA) Triggers() []Trigger {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return append([]Trigger(nil), dev.trigs...)
}

// Reads returns the sizes of the pipe-out transfers requested so far.
func (dev *FPGA) Reads() []int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return append([]int(nil), dev.reads...)
}

// Updates returns the number of UpdateWireOuts calls seen so far.
func (dev *FPGA) Updates() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.updates
}

// FifoWords returns the number of 16-bit words held in the FIFO.
func (dev *FPGA) FifoWords() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return len(dev.fifo) / 2
}

// Running reports whether the SPI run is in progress.
func (dev *FPGA) Running() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.running
}

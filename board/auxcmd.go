// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-lpc/rhythm/internal/regs"
)

// Port is one of the four SPI ports of a Rhythm board.
type Port int

const (
	PortA Port = iota
	PortB
	PortC
	PortD
)

// NumPorts is the number of SPI ports of a Rhythm board.
const NumPorts = regs.NumSPIPorts

func (p Port) String() string {
	if p.valid() {
		return "Port" + string(rune('A'+int(p)))
	}
	return fmt.Sprintf("Port(%d)", int(p))
}

func (p Port) valid() bool { return PortA <= p && p <= PortD }

// AuxCmdSlot is one of the three auxiliary command sequencers.
type AuxCmdSlot int

const (
	AuxCmd1 AuxCmdSlot = iota + 1
	AuxCmd2
	AuxCmd3
)

func (s AuxCmdSlot) String() string {
	if s.valid() {
		return fmt.Sprintf("AuxCmd%d", int(s))
	}
	return fmt.Sprintf("AuxCmdSlot(%d)", int(s))
}

func (s AuxCmdSlot) valid() bool { return AuxCmd1 <= s && s <= AuxCmd3 }

var (
	auxBankWires   = [regs.NumAuxCmdSlots]uint8{regs.WireInAuxCmdBank1, regs.WireInAuxCmdBank2, regs.WireInAuxCmdBank3}
	auxLengthWires = [regs.NumAuxCmdSlots]uint8{regs.WireInAuxCmdLength1, regs.WireInAuxCmdLength2, regs.WireInAuxCmdLength3}
	auxLoopWires   = [regs.NumAuxCmdSlots]uint8{regs.WireInAuxCmdLoop1, regs.WireInAuxCmdLoop2, regs.WireInAuxCmdLoop3}
)

// UploadCommandList writes a list of command words into a bank of the
// command RAM of an auxiliary command slot. Word i is stored at address i.
//
// The whole list is validated before anything is written to the board.
func (brd *Board) UploadCommandList(words []uint16, slot AuxCmdSlot, bank int) error {
	const op = "upload-command-list"
	switch {
	case !slot.valid():
		return errParam(op, "aux command slot", int(slot))
	case bank < 0 || bank >= regs.NumRAMBanks:
		return errParam(op, "RAM bank", bank)
	case len(words) > regs.RAMDepth:
		return errParam(op, "command list length", len(words))
	}
	for i, w := range words {
		if brd.cfg.cmds.Inspect(int(w)).Kind == CmdInvalid {
			return errParam(op, fmt.Sprintf("command word #%d", i), fmt.Sprintf("0x%04x", w))
		}
	}

	for i, w := range words {
		err := brd.t.SetWireInValue(regs.WireInCmdRamData, uint32(w), 0xffff)
		if err == nil {
			err = brd.t.SetWireInValue(regs.WireInCmdRamAddr, uint32(i), 0xffff)
		}
		if err == nil {
			err = brd.t.SetWireInValue(regs.WireInCmdRamBank, uint32(bank), 0xffff)
		}
		if err == nil {
			err = brd.t.UpdateWireIns()
		}
		if err == nil {
			err = brd.t.ActivateTriggerIn(regs.TrigInRamWrite, int(slot)-1)
		}
		if err != nil {
			return fmt.Errorf(
				"board: could not upload command #%d to %v bank %d: %w",
				i, slot, bank, err,
			)
		}
	}

	brd.touch()
	brd.msg.Debugf("uploaded %d commands to %v bank %d", len(words), slot, bank)
	return nil
}

// SelectAuxCommandBank selects the command RAM bank an auxiliary command
// slot executes for the provided SPI port. Other ports are left untouched.
func (brd *Board) SelectAuxCommandBank(port Port, slot AuxCmdSlot, bank int) error {
	const op = "select-aux-command-bank"
	switch {
	case !port.valid():
		return errParam(op, "port", int(port))
	case !slot.valid():
		return errParam(op, "aux command slot", int(slot))
	case bank < 0 || bank >= regs.NumRAMBanks:
		return errParam(op, "RAM bank", bank)
	}

	shift := 4 * uint32(port)
	err := brd.setWire(auxBankWires[slot-1], uint32(bank)<<shift, 0xf<<shift)
	if err != nil {
		return fmt.Errorf("board: could not select %v bank for %v: %w", slot, port, err)
	}
	brd.touch()
	return nil
}

// SelectAuxCommandLength sets the loop and end indices of the command
// list executed by an auxiliary command slot.
func (brd *Board) SelectAuxCommandLength(slot AuxCmdSlot, loop, end int) error {
	const op = "select-aux-command-length"
	switch {
	case !slot.valid():
		return errParam(op, "aux command slot", int(slot))
	case loop < 0 || loop >= regs.RAMDepth:
		return errParam(op, "loop index", loop)
	case end < 0 || end >= regs.RAMDepth:
		return errParam(op, "end index", end)
	}

	err := brd.t.SetWireInValue(auxLoopWires[slot-1], uint32(loop), 0xffff)
	if err == nil {
		err = brd.t.SetWireInValue(auxLengthWires[slot-1], uint32(end), 0xffff)
	}
	if err == nil {
		err = brd.t.UpdateWireIns()
	}
	if err != nil {
		return fmt.Errorf("board: could not set %v length: %w", slot, err)
	}
	brd.touch()
	return nil
}

// CommandKind is the class of an RHD2000 SPI command word.
type CommandKind int

const (
	CmdInvalid CommandKind = iota
	CmdConvert
	CmdRead
	CmdWrite
	CmdCalibrate
	CmdClear
)

func (k CommandKind) String() string {
	switch k {
	case CmdConvert:
		return "CONVERT"
	case CmdRead:
		return "READ"
	case CmdWrite:
		return "WRITE"
	case CmdCalibrate:
		return "CALIBRATE"
	case CmdClear:
		return "CLEAR"
	}
	return "INVALID"
}

// Command is a decoded command word.
type Command struct {
	Kind CommandKind
	Word int
	Reg  int // channel for CONVERT, register for READ and WRITE
	Data int // WRITE payload
}

func (cmd Command) String() string {
	switch cmd.Kind {
	case CmdConvert:
		return fmt.Sprintf("CONVERT(%d)", cmd.Reg)
	case CmdRead:
		return fmt.Sprintf("READ(%d)", cmd.Reg)
	case CmdWrite:
		return fmt.Sprintf("WRITE(%d,0x%02x)", cmd.Reg, cmd.Data)
	case CmdCalibrate:
		return "CALIBRATE"
	case CmdClear:
		return "CLEAR"
	}
	if cmd.Word < 0 {
		return fmt.Sprintf("INVALID COMMAND: %d", cmd.Word)
	}
	return fmt.Sprintf("INVALID COMMAND: 0x%04x", cmd.Word)
}

// CommandSet holds the exact command words recognized as CALIBRATE and
// CLEAR. Those differ between RHD2000 chip revisions.
type CommandSet struct {
	Calibrate uint16
	Clear     uint16
}

// DefaultCommandSet is the command set of RHD2132/RHD2216/RHD2164 chips.
var DefaultCommandSet = CommandSet{
	Calibrate: 0x5500,
	Clear:     0x6a00,
}

// Inspect decodes a command word.
func (cs CommandSet) Inspect(word int) Command {
	cmd := Command{Kind: CmdInvalid, Word: word}
	if word < 0 || word > 0xffff {
		return cmd
	}
	switch {
	case word == int(cs.Calibrate):
		cmd.Kind = CmdCalibrate
	case word == int(cs.Clear):
		cmd.Kind = CmdClear
	case word&0xc000 == 0x0000:
		cmd.Kind = CmdConvert
		cmd.Reg = (word & 0x3f00) >> 8
	case word&0xc000 == 0xc000:
		cmd.Kind = CmdRead
		cmd.Reg = (word & 0x3f00) >> 8
	case word&0xc000 == 0x8000:
		cmd.Kind = CmdWrite
		cmd.Reg = (word & 0x3f00) >> 8
		cmd.Data = word & 0x00ff
	}
	return cmd
}

// FormatCommandList writes a human readable listing of a command list.
func (cs CommandSet) FormatCommandList(w io.Writer, words []uint16) error {
	o := bufio.NewWriter(w)
	fmt.Fprintf(o, "command list (%d commands):\n", len(words))
	for i, word := range words {
		fmt.Fprintf(o, "  command[%d] = %v\n", i, cs.Inspect(int(word)))
	}
	err := o.Flush()
	if err != nil {
		return fmt.Errorf("board: could not write command list: %w", err)
	}
	return nil
}

// ConvertCmd returns the command word converting the provided channel.
func ConvertCmd(channel int) (uint16, error) {
	if channel < 0 || channel > 63 {
		return 0, errParam("convert-command", "channel", channel)
	}
	return uint16(channel) << 8, nil
}

// ReadCmd returns the command word reading the provided register.
func ReadCmd(reg int) (uint16, error) {
	if reg < 0 || reg > 63 {
		return 0, errParam("read-command", "register", reg)
	}
	return 0xc000 | uint16(reg)<<8, nil
}

// WriteCmd returns the command word writing data to the provided register.
func WriteCmd(reg, data int) (uint16, error) {
	switch {
	case reg < 0 || reg > 63:
		return 0, errParam("write-command", "register", reg)
	case data < 0 || data > 0xff:
		return 0, errParam("write-command", "data", data)
	}
	return 0x8000 | uint16(reg)<<8 | uint16(data), nil
}

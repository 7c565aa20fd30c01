// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the endpoint addresses and bit layouts exposed by
// the Rhythm FPGA image.
package regs // import "github.com/go-lpc/rhythm/internal/regs"

// wire-in endpoints (host -> FPGA).
const (
	WireInResetRun          = 0x00
	WireInMaxTimeStepLsb    = 0x01
	WireInMaxTimeStepMsb    = 0x02
	WireInDataFreqPll       = 0x03
	WireInMisoDelay         = 0x04
	WireInCmdRamAddr        = 0x05
	WireInCmdRamBank        = 0x06
	WireInCmdRamData        = 0x07
	WireInAuxCmdBank1       = 0x08
	WireInAuxCmdBank2       = 0x09
	WireInAuxCmdBank3       = 0x0a
	WireInAuxCmdLength1     = 0x0b
	WireInAuxCmdLength2     = 0x0c
	WireInAuxCmdLength3     = 0x0d
	WireInAuxCmdLoop1       = 0x0e
	WireInAuxCmdLoop2       = 0x0f
	WireInAuxCmdLoop3       = 0x10
	WireInLedDisplay        = 0x11
	WireInDataStreamSel1234 = 0x12
	WireInDataStreamSel5678 = 0x13
	WireInDataStreamEn      = 0x14
	WireInTtlOut            = 0x15
	WireInDacSource1        = 0x16
	WireInDacSource2        = 0x17
	WireInDacSource3        = 0x18
	WireInDacSource4        = 0x19
	WireInDacSource5        = 0x1a
	WireInDacSource6        = 0x1b
	WireInDacSource7        = 0x1c
	WireInDacSource8        = 0x1d
	WireInDacManual1        = 0x1e
	WireInDacManual2        = 0x1f
)

// trigger-in endpoints.
const (
	TrigInDcmProg  = 0x40
	TrigInSpiStart = 0x41
	TrigInRamWrite = 0x42 // bit selects the aux command slot
)

// wire-out endpoints (FPGA -> host).
const (
	WireOutNumWordsLsb   = 0x20
	WireOutNumWordsMsb   = 0x21
	WireOutSpiRunning    = 0x22
	WireOutTtlIn         = 0x23
	WireOutDataClkLocked = 0x24
	WireOutBoardID       = 0x3e
	WireOutBoardVersion  = 0x3f
)

// pipe-out endpoints.
const (
	PipeOutData = 0xa0
)

// WireInResetRun bit fields.
const (
	ResetRunReset         = 0x0001
	ResetRunContinuous    = 0x0002
	ResetRunDspSettle     = 0x0004
	ResetRunNoiseSuppress = 0x1fc0
	ResetRunDacGain       = 0xe000

	ShiftNoiseSuppress = 6
	ShiftDacGain       = 13
)

// WireOutDataClkLocked bit fields.
const (
	O_DATA_CLK_LOCKED = 0x0001
	O_DCM_PROG_DONE   = 0x0002
)

// WireInDacSourceX bit fields.
const (
	DacSourceChannel = 0x001f
	DacSourceStream  = 0x01e0
	DacSourceEnable  = 0x0200

	ShiftDacStream = 5
)

const (
	BoardID = 500 // identifier reported by a Rhythm FPGA image

	USBBufferSize = 2400000  // bytes
	FIFOCapacity  = 67108864 // 16-bit words

	MaxNumDataStreams = 8
	NumSPIPorts       = 4
	NumAuxCmdSlots    = 3
	NumRAMBanks       = 16
	RAMDepth          = 1024

	// ClocksPerSample is the number of data-clock cycles per amplifier sample:
	// 80 clock cycles per SPI command, 32 channels + 3 auxiliary commands.
	ClocksPerSample = 2800
)

// ClockWord packs the (M,D) synthesizer parameters into the
// WireInDataFreqPll register layout.
func ClockWord(m, d uint32) uint32 {
	return 256*m + d
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert Rhythm record files to/from LCIO.
//
// Each data block is stored as one LCIO event holding two generic object
// collections:
//   - "RHD_STREAMS": one entry per data stream, with the 32 amplifier
//     channels followed by the 3 aux command results, sample-major per
//     channel;
//   - "RHD_BOARD": the time stamps, the 8 board ADC channels, then the
//     TTL inputs and outputs.
package xcnv // import "github.com/go-lpc/rhythm/internal/xcnv"

import (
	"github.com/go-lpc/rhythm/datablock"
)

const (
	streamsCollection = "RHD_STREAMS"
	boardCollection   = "RHD_BOARD"

	detector = "RHD2000"

	streamSize = (datablock.NumAmplifiers + datablock.NumAux) * datablock.SamplesPerBlock
	boardSize  = (1 + datablock.NumBoardADCs + 2) * datablock.SamplesPerBlock
)

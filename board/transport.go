// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

// Transport is the host-interface layer of a Rhythm board.
//
// Wire-in values set with SetWireInValue are staged and only sent to the
// FPGA by UpdateWireIns. WireOutValue returns the value of a wire-out
// endpoint as captured by the last UpdateWireOuts.
type Transport interface {
	SetWireInValue(ep uint8, v, mask uint32) error
	UpdateWireIns() error
	UpdateWireOuts() error
	WireOutValue(ep uint8) uint32
	ActivateTriggerIn(ep uint8, bit int) error
	ReadFromPipeOut(ep uint8, p []byte) (int, error)
}

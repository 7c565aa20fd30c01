// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func TestLCIO2RHD(t *testing.T) {
	tmp := t.TempDir()

	raw := new(bytes.Buffer)
	enc := datablock.NewEncoder(raw, 3)
	for i := 0; i < 2; i++ {
		blk := datablock.New(3)
		blk.Stamps[0] = uint32(i)
		blk.Aux[2][1][7] = 0xcafe
		blk.TTLOut[59] = uint16(i + 1)
		err := enc.Encode(blk)
		if err != nil {
			t.Fatalf("could not encode block: %+v", err)
		}
	}
	want := append([]byte(nil), raw.Bytes()...)

	fname := filepath.Join(tmp, "rhd_001.lcio")
	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	_, err = xcnv.RHD2LCIO(w, datablock.NewDecoder(raw, 3), 1, 3, log.New(io.Discard))
	if err != nil {
		t.Fatalf("could not convert to LCIO: %+v", err)
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	oname := filepath.Join(tmp, "out.dat")
	n, err := process(oname, fname)
	if err != nil {
		t.Fatalf("could not convert LCIO file: %+v", err)
	}
	if n != 2 {
		t.Fatalf("invalid number of blocks: got=%d, want=2", n)
	}

	got, err := os.ReadFile(oname)
	if err != nil {
		t.Fatalf("could not read record file: %+v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round-trip failed")
	}
}

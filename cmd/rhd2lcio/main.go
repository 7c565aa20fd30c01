// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rhd2lcio converts a Rhythm record file to an LCIO one.
package main // import "github.com/go-lpc/rhythm/cmd/rhd2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.NewWithOptions(os.Stderr, log.Options{Prefix: "rhd2lcio"})
)

func main() {
	var (
		oname   = flag.String("o", "out.lcio", "path to output LCIO file")
		compr   = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		streams = flag.Int("streams", 1, "number of data streams in the record file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: rhd2lcio [OPTIONS] rhd_RUN.dat

ex:
 $> rhd2lcio -o out.lcio -lvl=9 -streams=2 ./rhd_063.dat

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input record file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, flag.Arg(0), *streams)
	if err != nil {
		msg.Fatalf("could not convert record file: %+v", err)
	}
}

func process(oname string, lvl int, fname string, streams int) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open record file: %w", err)
	}
	defer f.Close()

	run, err := runNbrFrom(fname)
	if err != nil {
		return fmt.Errorf("could not infer run from %q: %w", fname, err)
	}

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	n, err := xcnv.RHD2LCIO(w, datablock.NewDecoder(f, streams), run, streams, msg)
	if err != nil {
		return fmt.Errorf("could not convert record file to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	msg.Infof("converted %d data blocks (run=%d)", n, run)
	return nil
}

func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
	)
	_, err := fmt.Sscanf(name, "rhd_%d.dat", &run)
	return run, err
}

// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio2rhd converts an LCIO file into a Rhythm record file.
package main // import "github.com/go-lpc/rhythm/cmd/lcio2rhd"

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.NewWithOptions(os.Stderr, log.Options{Prefix: "lcio2rhd"})
)

func main() {
	var (
		oname = flag.String("o", "out.dat", "path to output record file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio2rhd [OPTIONS] file.lcio

ex:
 $> lcio2rhd -o out.dat ./input.lcio

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input LCIO file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output record file name")
	}

	msg.Infof("input:  %s", flag.Arg(0))
	n, err := process(*oname, flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert LCIO file: %+v", err)
	}
	msg.Infof("blocks: %d", n)
}

func process(oname, fname string) (int, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	f, err := os.Create(oname)
	if err != nil {
		return 0, fmt.Errorf("could not create output record file: %w", err)
	}
	defer f.Close()

	n, err := xcnv.LCIO2RHD(f, r, msg)
	if err != nil {
		return n, fmt.Errorf("could not convert LCIO events: %w", err)
	}

	err = f.Close()
	if err != nil {
		return n, fmt.Errorf("could not close output record file: %w", err)
	}
	return n, nil
}

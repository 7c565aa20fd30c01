// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rhd-dump decodes and displays Rhythm record files.
//
// Usage: rhd-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> rhd-dump -streams 2 ./run-001.dat
//	=== block 0 ===
//	time stamps:        0 ..       59
//	TTL in:          0x0000
//	TTL out:         0x0000
//	stream 0: amp[0]=   +12.48 uV aux=[0x0000 0x0000 0x0000]
//	stream 1: amp[0]=    -3.90 uV aux=[0x0000 0x0000 0x0000]
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm/datablock"
	"github.com/go-lpc/rhythm/internal/mmap"
	"go-hep.org/x/hep/hbook"
)

func main() {
	log.SetPrefix("rhd-dump")
	log.SetReportTimestamp(false)

	var (
		streams = flag.Int("streams", 1, "number of data streams in the record file")
		stats   = flag.Bool("stats", false, "display amplifier statistics for each data stream")
	)

	flag.Usage = func() {
		fmt.Printf(`rhd-dump decodes and displays Rhythm record files.

Usage: rhd-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> rhd-dump -streams 2 ./run-001.dat
 === block 0 ===
 time stamps:        0 ..       59
 TTL in:          0x0000
 TTL out:         0x0000
 stream 0: amp[0]=   +12.48 uV aux=[0x0000 0x0000 0x0000]
 stream 1: amp[0]=    -3.90 uV aux=[0x0000 0x0000 0x0000]
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input record file")
	}

	if *streams < 1 || *streams > 8 {
		log.Fatalf("invalid number of data streams %d", *streams)
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *streams, *stats)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, n int, stats bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	if size := datablock.RecordSize(n); f.Len()%size != 0 {
		return fmt.Errorf(
			"file size %d is not a multiple of the record size %d (streams=%d)",
			f.Len(), size, n,
		)
	}

	hs := make([]*hbook.H1D, n)
	for i := range hs {
		hs[i] = hbook.NewH1D(256, -6400, +6400)
	}

	var (
		dec  = datablock.NewDecoder(f.Reader(), n)
		blk  datablock.Block
		nblk int
	)
loop:
	for ; ; nblk++ {
		err := dec.Decode(&blk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode block #%d: %w", nblk, err)
		}

		fmt.Fprintf(wbuf, "=== block %d ===\n", nblk)
		fmt.Fprintf(wbuf, "time stamps: % 8d .. % 8d\n", blk.Stamps[0], blk.Stamps[datablock.SamplesPerBlock-1])
		fmt.Fprintf(wbuf, "TTL in:          0x%04x\n", blk.TTLIn[0])
		fmt.Fprintf(wbuf, "TTL out:         0x%04x\n", blk.TTLOut[0])
		for s := 0; s < n; s++ {
			fmt.Fprintf(wbuf, "stream %d: amp[0]=%+9.2f uV aux=[0x%04x 0x%04x 0x%04x]\n",
				s, datablock.Microvolts(blk.Amplifier[s][0][0]),
				blk.Aux[s][0][0], blk.Aux[s][1][0], blk.Aux[s][2][0],
			)
		}

		if !stats {
			continue
		}
		for s, h := range hs {
			for ch := range blk.Amplifier[s] {
				for _, v := range blk.Amplifier[s][ch] {
					h.Fill(datablock.Microvolts(v), 1)
				}
			}
		}
	}

	if stats {
		fmt.Fprintf(wbuf, "=== stats (%d blocks) ===\n", nblk)
		for s, h := range hs {
			fmt.Fprintf(wbuf, "stream %d: entries=%d mean=%+.2f uV std-dev=%.2f uV\n",
				s, h.Entries(), h.XMean(), h.XStdDev(),
			)
		}
	}

	return nil
}

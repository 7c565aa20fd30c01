// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rhd-daq configures a Rhythm board and records its data blocks.
//
// Example:
//
//	$> rhd-daq run --sim --config ./rhythm.hcl --blocks 1000 -o run-001.dat
//	$> rhd-daq cable --length 3 --feet
//	$> rhd-daq cmds 0x5500 0xe800 0x80de
package main // import "github.com/go-lpc/rhythm/cmd/rhd-daq"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/go-lpc/rhythm"
	"github.com/go-lpc/rhythm/board"
	"github.com/go-lpc/rhythm/config"
	"github.com/go-lpc/rhythm/internal/fakefpga"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errNoHardware = errors.New("no hardware transport available, use --sim")

func main() {
	log.SetPrefix("rhd-daq")
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	var err error
	switch flags.Command() {
	case "run":
		err = runCmd()
	case "cable":
		err = cable(os.Stdout, cli.Cable.Length, cli.Cable.Feet)
	case "cmds <words>":
		err = cmds(os.Stdout, board.DefaultCommandSet, cli.Cmds.Words)
	case "version":
		version(os.Stdout)
	default:
		log.Errorf("command %q not recognized", flags.Command())
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %+v", flags.Command(), err)
	}
}

func runCmd() error {
	cfg, err := config.Load(cli.Run.Config)
	if err != nil {
		return err
	}
	if cli.Run.Output != "" {
		cfg.Acq.Output = cli.Run.Output
	}
	if cli.Run.Blocks > 0 {
		cfg.Acq.MaxBlocks = cli.Run.Blocks
	}
	if cli.Run.MetricsAddr != "" {
		cfg.Acq.MetricsAddr = cli.Run.MetricsAddr
	}
	if !cli.Run.Sim {
		return errNoHardware
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	if addr := cfg.Acq.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("could not serve metrics on %q: %+v", addr, err)
			}
		}()
		defer srv.Close()
		log.Infof("serving metrics on %s/metrics", addr)
	}

	n, err := run(ctx, cfg, fakefpga.New(), reg)
	if err != nil {
		return err
	}
	log.Infof("recorded %d data blocks to %q", n, cfg.Acq.Output)
	return nil
}

// run configures a board driven by the emulated FPGA dev, records data
// blocks to the configured output file and stops the board.
func run(ctx context.Context, cfg config.Config, dev *fakefpga.FPGA, reg prometheus.Registerer) (int, error) {
	opts, err := cfg.Options(log.Default())
	if err != nil {
		return 0, err
	}
	opts = append(opts, board.WithMetrics(reg))

	brd, err := board.New(dev, opts...)
	if err != nil {
		return 0, fmt.Errorf("could not create board: %w", err)
	}

	err = brd.CheckBoardID()
	if err != nil {
		return 0, err
	}
	err = brd.Initialize(ctx)
	if err != nil {
		return 0, err
	}
	err = cfg.Apply(ctx, brd)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(cfg.Acq.Output)
	if err != nil {
		return 0, fmt.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	err = brd.Run()
	if err != nil {
		return 0, err
	}

	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		simulate(sctx, dev, brd.NumEnabledDataStreams(), brd.SampleRate().Hz())
	}()

	n, err := brd.Record(ctx, f, cfg.Acq.RecordOptions())
	cancel()
	<-done
	if err != nil {
		return n, err
	}

	err = brd.Stop()
	if err != nil {
		return n, err
	}
	err = brd.WaitStopped(context.Background())
	if err != nil {
		return n, err
	}
	flushed, err := brd.Flush()
	if err != nil {
		return n, err
	}
	log.Debugf("flushed %d bytes after run", flushed)

	err = f.Close()
	if err != nil {
		return n, fmt.Errorf("could not close output file: %w", err)
	}
	return n, nil
}

func cable(w io.Writer, length float64, feet bool) error {
	meters := length
	if feet {
		meters = length * 0.3048
	}
	fmt.Fprintf(w, "cable length: %.3f m\n", meters)
	for _, rate := range board.SampleRates() {
		delay, err := board.CableDelay(rate, meters)
		if err != nil {
			fmt.Fprintf(w, "%12v: cable too long\n", rate)
			continue
		}
		est, err := board.CableLength(rate, delay)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%12v: delay=%2d (estimate: %.3f m)\n", rate, delay, est)
	}
	return nil
}

func cmds(w io.Writer, cs board.CommandSet, args []string) error {
	words := make([]uint16, len(args))
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 16)
		if err != nil {
			return fmt.Errorf("could not parse command word %q: %w", arg, err)
		}
		words[i] = uint16(v)
	}
	return cs.FormatCommandList(w, words)
}

func version(w io.Writer) {
	vers, sum := rhythm.Version()
	if vers == "" {
		vers = "(devel)"
	}
	fmt.Fprintf(w, "rhd-daq %s %s\n", vers, sum)
}

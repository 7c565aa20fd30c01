// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

var cli struct {
	Verbose bool `help:"Prints debug output"`
	Run     struct {
		Config      string `help:"Path to the HCL configuration file" type:"path"`
		Sim         bool   `help:"Drive an emulated FPGA producing synthetic data"`
		Output      string `short:"o" help:"Path to the output record file (overrides acq.output)"`
		Blocks      int    `help:"Number of data blocks to record (overrides acq.max_blocks)"`
		MetricsAddr string `help:"Address serving Prometheus metrics on /metrics (overrides acq.metrics_addr)"`
	} `cmd:"" help:"Configure the board and record data blocks"`
	Cable struct {
		Length float64 `required:"" help:"Cable length"`
		Feet   bool    `help:"Cable length is given in feet"`
	} `cmd:"" help:"Display the MISO delay setting of a cable for every sample rate"`
	Cmds struct {
		Words []string `arg:"" help:"Command words (decimal, 0x-prefixed hexadecimal or 0b-prefixed binary)"`
	} `cmd:"" help:"Decode aux command words"`
	Version struct{} `cmd:"" help:"Display the version of rhd-daq"`
}

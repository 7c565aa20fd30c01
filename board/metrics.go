// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	blocks   prometheus.Counter
	bytes    prometheus.Counter
	flushed  prometheus.Counter
	timeouts prometheus.Counter
	fifo     prometheus.Gauge
}

// newMetrics creates the board metrics and, if reg is not nil, registers them.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		blocks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rhythm_data_blocks_total",
				Help: "Number of data blocks read from the board",
			},
		),
		bytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rhythm_usb_bytes_total",
				Help: "Number of bytes read from the USB pipe",
			},
		),
		flushed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rhythm_flushed_bytes_total",
				Help: "Number of bytes discarded by FIFO flushes",
			},
		),
		timeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rhythm_clock_timeouts_total",
				Help: "Number of clock synthesizer lock timeouts",
			},
		),
		fifo: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rhythm_fifo_words",
				Help: "Number of 16-bit words last seen in the board FIFO",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.blocks, m.bytes, m.flushed, m.timeouts, m.fifo)
	}
	return m
}

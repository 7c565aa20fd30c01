// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the file and environment configuration of a
// Rhythm acquisition.
//
// Configuration files are written in HCL:
//
//	board {
//	  sample_rate   = "20k"
//	  streams       = [0, 1]
//	  sources       = ["PortA1", "PortA2"]
//	  lock_timeout  = "2s"
//	}
//
//	cables {
//	  unit    = "ft"
//	  lengths = [3, 3, 6, 6]
//	}
//
//	aux {
//	  slot  = 1
//	  bank  = 0
//	  loop  = 0
//	  words = [0x0000, 0x0100]
//	}
//
//	acq {
//	  blocks_per_read = 4
//	  output          = "run-001.dat"
//	}
//
// Any key can be overridden with an environment variable named after its
// path, e.g. RHYTHM_BOARD_SAMPLE_RATE or RHYTHM_ACQ_MAX_BLOCKS.
package config // import "github.com/go-lpc/rhythm/config"

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "RHYTHM_"

type Config struct {
	Board  BoardConf `koanf:"board"`
	Cables CableConf `koanf:"cables"`
	Aux    []AuxConf `koanf:"aux"`
	Acq    AcqConf   `koanf:"acq"`
}

type BoardConf struct {
	SampleRate   string        `koanf:"sample_rate"`
	Streams      []int         `koanf:"streams"`
	Sources      []string      `koanf:"sources"`
	PollInterval time.Duration `koanf:"poll_interval"`
	LockTimeout  time.Duration `koanf:"lock_timeout"`
	BufferSize   int           `koanf:"buffer_size"`
	DspSettle    bool          `koanf:"dsp_settle"`
	Calibrate    int           `koanf:"calibrate_word"`
	Clear        int           `koanf:"clear_word"`
}

// CableConf holds the SPI cable length of ports A to D.
type CableConf struct {
	Unit    string    `koanf:"unit"` // "m" or "ft"
	Lengths []float64 `koanf:"lengths"`
}

// AuxConf describes a command list uploaded to an aux command slot and
// selected on every port.
type AuxConf struct {
	Slot  int   `koanf:"slot"`
	Bank  int   `koanf:"bank"`
	Loop  int   `koanf:"loop"`
	Words []int `koanf:"words"`
}

type AcqConf struct {
	BlocksPerRead int    `koanf:"blocks_per_read"`
	MaxBlocks     int    `koanf:"max_blocks"`
	Depth         int    `koanf:"depth"`
	Output        string `koanf:"output"`
	MetricsAddr   string `koanf:"metrics_addr"`
}

// Default returns the configuration of a freshly initialized board:
// 30 kS/s, stream 0 only and 3 ft cables.
func Default() Config {
	var cfg Config
	cfg.setDefaults()
	return cfg
}

func (cfg *Config) setDefaults() {
	if cfg.Board.SampleRate == "" {
		cfg.Board.SampleRate = "30000"
	}
	if len(cfg.Board.Streams) == 0 {
		cfg.Board.Streams = []int{0}
	}
	if cfg.Board.PollInterval == 0 {
		cfg.Board.PollInterval = time.Millisecond
	}
	if cfg.Board.LockTimeout == 0 {
		cfg.Board.LockTimeout = 5 * time.Second
	}
	if cfg.Board.BufferSize == 0 {
		cfg.Board.BufferSize = 2400000
	}
	if cfg.Board.Calibrate == 0 {
		cfg.Board.Calibrate = 0x5500
	}
	if cfg.Board.Clear == 0 {
		cfg.Board.Clear = 0x6a00
	}
	if cfg.Cables.Unit == "" {
		cfg.Cables.Unit = "ft"
	}
	if len(cfg.Cables.Lengths) == 0 {
		cfg.Cables.Lengths = []float64{3, 3, 3, 3}
	}
	if cfg.Acq.BlocksPerRead == 0 {
		cfg.Acq.BlocksPerRead = 1
	}
	if cfg.Acq.Depth == 0 {
		cfg.Acq.Depth = 8
	}
	if cfg.Acq.Output == "" {
		cfg.Acq.Output = "rhythm.dat"
	}
}

// Load reads the HCL configuration file at path, when path is not empty,
// then applies the RHYTHM_ environment variables.
// Missing keys take their Default value.
func Load(path string) (Config, error) {
	return load(path, os.Environ)
}

func load(path string, environ func() []string) (Config, error) {
	var (
		cfg Config
		k   = koanf.New(".")
	)

	if path != "" {
		err := k.Load(file.Provider(path), hcl.Parser(true))
		if err != nil {
			return cfg, fmt.Errorf("config: could not load %q: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: environ,
		TransformFunc: func(k, v string) (string, any) {
			key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
			return strings.Replace(key, "_", ".", 1), v
		},
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("config: could not load environment: %w", err)
	}

	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return cfg, fmt.Errorf("config: could not decode configuration: %w", err)
	}

	cfg.setDefaults()
	return cfg, nil
}

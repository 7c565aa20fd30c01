// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-daq/tdaq"
)

// Server exposes a board as a TDAQ process.
//
// The /config command body holds two u32 values: the sample rate in S/s
// and the bitmap of data streams to enable. An empty body keeps the
// current configuration. While running, data blocks are published on
// the output handle, batch blocks per frame, in the record file format.
type Server struct {
	mu    sync.Mutex
	brd   *Board
	batch int

	data chan []byte
	n    int // data blocks published during the current run
}

// NewServer creates a TDAQ server reading batch data blocks per USB transfer.
func NewServer(brd *Board, batch int) *Server {
	if batch <= 0 {
		batch = 1
	}
	return &Server{
		brd:   brd,
		batch: batch,
		data:  make(chan []byte, 1024),
	}
}

func (srv *Server) configure(ctx context.Context, rate SampleRate, mask uint32) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if mask == 0 || mask >= 1<<MaxNumDataStreams {
		return errParam("configure", "data stream mask", fmt.Sprintf("0x%x", mask))
	}

	err := srv.brd.SetSampleRate(ctx, rate)
	if err != nil {
		return err
	}
	err = srv.brd.RefreshCableDelays()
	if err != nil {
		return err
	}
	for i := 0; i < MaxNumDataStreams; i++ {
		err = srv.brd.EnableDataStream(i, mask&(1<<uint(i)) != 0)
		if err != nil {
			return err
		}
	}
	return nil
}

func (srv *Server) initialize(ctx context.Context) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	err := srv.brd.CheckBoardID()
	if err != nil {
		return err
	}
	return srv.brd.Initialize(ctx)
}

func (srv *Server) reset() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.n = 0
	for len(srv.data) > 0 {
		<-srv.data
	}
	return srv.brd.ResetBoard()
}

func (srv *Server) start() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.n = 0
	return srv.brd.Run()
}

func (srv *Server) stop(ctx context.Context) (int, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	err := srv.brd.Stop()
	if err != nil {
		return srv.n, err
	}
	err = srv.brd.WaitStopped(ctx)
	if err != nil {
		return srv.n, err
	}
	_, err = srv.brd.Flush()
	return srv.n, err
}

// poll returns the next batch of data blocks, or nil if the FIFO does
// not hold enough data yet.
func (srv *Server) poll() ([]byte, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.brd.State() != Running {
		return nil, nil
	}

	var q Queue
	err := srv.brd.ReadDataBlocks(srv.batch, &q)
	switch {
	case errors.Is(err, ErrInsufficientData):
		return nil, nil
	case err != nil:
		return nil, err
	}

	buf := new(bytes.Buffer)
	n, err := srv.brd.QueueToFile(&q, buf)
	srv.n += n
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if len(req.Body) == 0 {
		return nil
	}
	if len(req.Body) < 8 {
		return fmt.Errorf("invalid /config payload (len=%d)", len(req.Body))
	}

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	rate := SampleRate(dec.ReadU32())
	mask := dec.ReadU32()

	err := srv.configure(ctx.Ctx, rate, mask)
	if err != nil {
		ctx.Msg.Errorf("could not configure board (rate=%v, streams=0x%x): %+v", rate, mask, err)
		return fmt.Errorf("could not configure board: %w", err)
	}
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.initialize(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("could not initialize board: %+v", err)
		return fmt.Errorf("could not initialize board: %w", err)
	}
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not reset board: %+v", err)
		return fmt.Errorf("could not reset board: %w", err)
	}
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	err := srv.start()
	if err != nil {
		ctx.Msg.Errorf("could not start run: %+v", err)
		return fmt.Errorf("could not start run: %w", err)
	}
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n, err := srv.stop(ctx.Ctx)
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	if err != nil {
		ctx.Msg.Errorf("could not stop run: %+v", err)
		return fmt.Errorf("could not stop run: %w", err)
	}
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

// Blocks publishes data blocks read from the board.
func (srv *Server) Blocks(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Loop reads data blocks from the board until ctx is done.
func (srv *Server) Loop(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		raw, err := srv.poll()
		if err != nil {
			ctx.Msg.Errorf("could not read data blocks: %+v", err)
			return fmt.Errorf("could not read data blocks: %w", err)
		}
		if raw == nil {
			srv.brd.cfg.sleep(srv.brd.cfg.poll)
			continue
		}

		select {
		case srv.data <- raw:
		case <-ctx.Ctx.Done():
			return nil
		}
	}
}

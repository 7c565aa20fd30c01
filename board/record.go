// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-lpc/rhythm/datablock"
	"golang.org/x/sync/errgroup"
)

// RecordOptions configures Record.
type RecordOptions struct {
	BlocksPerRead int // data blocks per USB transfer (default: 1)
	MaxBlocks     int // number of data blocks to record (default: until stopped)
	Depth         int // number of pending transfers between reader and writer (default: 8)
}

// Record reads data blocks from a running board and writes them to w, in
// the record file format, until ctx is done, MaxBlocks data blocks were
// recorded or the board stopped and all complete data blocks were read
// out of the FIFO. It returns the number of data blocks written.
//
// USB transfers and writes to w run concurrently. The board must not be
// used by other goroutines until Record returns.
func (brd *Board) Record(ctx context.Context, w io.Writer, opts RecordOptions) (int, error) {
	if brd.state != Running {
		return 0, fmt.Errorf("board: could not record while %v: %w", brd.state, ErrInvalidState)
	}

	batch := opts.BlocksPerRead
	if batch <= 0 {
		batch = 1
	}
	depth := opts.Depth
	if depth <= 0 {
		depth = 8
	}

	n := brd.streams.NumEnabled()
	if size := 2 * batch * datablock.SizeInWords(n); size > len(brd.buf) {
		return 0, fmt.Errorf(
			"board: could not record %d data blocks per transfer (size=%d, buffer=%d): %w",
			batch, size, len(brd.buf), ErrBufferTooSmall,
		)
	}

	var (
		enc  = datablock.NewEncoder(w, n)
		qs   = make(chan *Queue, depth)
		nblk int
	)

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer close(qs)
		var (
			q    Queue
			read int
		)
		for opts.MaxBlocks <= 0 || read < opts.MaxBlocks {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			want := batch
			if opts.MaxBlocks > 0 && opts.MaxBlocks-read < want {
				want = opts.MaxBlocks - read
			}

			err := brd.ReadDataBlocks(want, &q)
			switch {
			case err == nil:
				read += want
				select {
				case qs <- q.Take():
				case <-gctx.Done():
					return nil
				}

			case errors.Is(err, ErrInsufficientData):
				running, err := brd.IsRunning()
				if err != nil {
					return fmt.Errorf("board: could not poll run status: %w", err)
				}
				if !running {
					if want == 1 {
						return nil
					}
					// drain the FIFO one data block at a time.
					batch = 1
					continue
				}
				brd.cfg.sleep(brd.cfg.poll)

			default:
				return err
			}
		}
		return nil
	})

	grp.Go(func() error {
		for q := range qs {
			n, err := writeQueue(enc, q)
			nblk += n
			if err != nil {
				return fmt.Errorf("board: could not write data blocks: %w", err)
			}
		}
		return nil
	})

	err := grp.Wait()
	if err != nil {
		brd.msg.Errorf("recording failed after %d data blocks: %+v", nblk, err)
		return nblk, err
	}
	brd.msg.Infof("recorded %d data blocks", nblk)
	return nblk, nil
}

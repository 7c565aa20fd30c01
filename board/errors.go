// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("board: invalid parameter")
	ErrBufferTooSmall   = errors.New("board: USB buffer too small")
	ErrInsufficientData = errors.New("board: insufficient data in FIFO")
	ErrClockLockTimeout = errors.New("board: timeout waiting for clock")
	ErrInvalidState     = errors.New("board: invalid board state")
)

// ParamError describes an out-of-range argument passed to a board
// operation. It unwraps to ErrInvalidParameter.
type ParamError struct {
	Op    string // operation name
	Field string // offending argument
	Value any
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("board: %s: invalid %s (%v)", e.Op, e.Field, e.Value)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

func errParam(op, field string, v any) error {
	return &ParamError{Op: op, Field: field, Value: v}
}

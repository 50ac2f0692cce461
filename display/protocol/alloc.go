// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

import "sync"

// Allocator is consulted by Decode before reading each variable-length wire
// field: the allocation is attempted first, and only proceeds to consume
// the payload bytes from the stream if it succeeds. On a microcontroller
// with kilobytes of heap this matters; DefaultAllocator below never fails
// and is appropriate for a hosted Go build, while BudgetedAllocator lets
// tests exercise the drop path.
type Allocator interface {
	AllocPixels(n int) ([]uint16, error)
	AllocRuns(n int) ([]RleRun, error)
	AllocRects(n int) ([]DamagedRect, error)
}

// DefaultAllocator allocates directly from the Go heap and never fails. It
// is the allocator a hosted (non-bare-metal) build should use; on TamaGo
// itself the Go runtime's heap still backs these allocations (pixel and run
// buffers are never handed to DMA), so this is also the correct choice
// there.
type DefaultAllocator struct{}

func (DefaultAllocator) AllocPixels(n int) ([]uint16, error) {
	return make([]uint16, n), nil
}

func (DefaultAllocator) AllocRuns(n int) ([]RleRun, error) {
	return make([]RleRun, n), nil
}

func (DefaultAllocator) AllocRects(n int) ([]DamagedRect, error) {
	return make([]DamagedRect, n), nil
}

// BudgetedAllocator enforces a fixed byte budget across all allocations it
// grants, failing with ErrAlloc once the budget is exhausted. It models a
// kilobyte-scale heap and is the vehicle tests use to exercise the drop
// path: shrink the budget until an allocation at a known site fails, then
// assert the next packet in the stream still parses.
type BudgetedAllocator struct {
	mu        sync.Mutex
	remaining int
}

// NewBudgetedAllocator returns an allocator that can grant at most
// budgetBytes total across its lifetime.
func NewBudgetedAllocator(budgetBytes int) *BudgetedAllocator {
	return &BudgetedAllocator{remaining: budgetBytes}
}

func (a *BudgetedAllocator) reserve(size int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size > a.remaining {
		return ErrAlloc
	}

	a.remaining -= size
	return nil
}

func (a *BudgetedAllocator) AllocPixels(n int) ([]uint16, error) {
	if err := a.reserve(n * 2); err != nil {
		return nil, err
	}
	return make([]uint16, n), nil
}

func (a *BudgetedAllocator) AllocRuns(n int) ([]RleRun, error) {
	if err := a.reserve(n * 3); err != nil {
		return nil, err
	}
	return make([]RleRun, n), nil
}

func (a *BudgetedAllocator) AllocRects(n int) ([]DamagedRect, error) {
	if err := a.reserve(n * 8); err != nil {
		return nil, err
	}
	return make([]DamagedRect, n), nil
}

// Remaining reports the unreserved budget, in bytes.
func (a *BudgetedAllocator) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

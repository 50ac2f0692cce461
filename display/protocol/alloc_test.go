// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"testing"
)

func TestBudgetedAllocatorGrantsWithinBudget(t *testing.T) {
	a := NewBudgetedAllocator(10)

	pixels, err := a.AllocPixels(3) // 6 bytes
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != 3 {
		t.Errorf("got %d pixels", len(pixels))
	}
	if got := a.Remaining(); got != 4 {
		t.Errorf("got %d remaining, want 4", got)
	}
}

func TestBudgetedAllocatorFailsOverBudget(t *testing.T) {
	a := NewBudgetedAllocator(4)

	_, err := a.AllocPixels(3) // needs 6 bytes
	if !errors.Is(err, ErrAlloc) {
		t.Fatalf("got %v, want ErrAlloc", err)
	}
	if got := a.Remaining(); got != 4 {
		t.Errorf("budget should be untouched on failure, got %d", got)
	}
}

func TestDefaultAllocatorNeverFails(t *testing.T) {
	a := DefaultAllocator{}

	if _, err := a.AllocPixels(1 << 20); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AllocRuns(1 << 20); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AllocRects(1 << 20); err != nil {
		t.Fatal(err)
	}
}

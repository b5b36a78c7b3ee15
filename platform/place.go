// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package platform describes where memory lives and how memory operations run on it.
//
// A Place is a tagged value: the backend Kind (host or accelerator) plus, for accelerators, the
// device number. A Context couples a Place with the execution Stream used to issue asynchronous
// work on an accelerator.
//
// Accelerator devices are emulated by in-process memory driven by the goroutine of a Stream:
// work issued on a stream runs asynchronously, strictly in issue order, and the host must
// synchronize with the stream (Stream.Synchronize or Event.Wait) before reading the results.
//
// Accelerator support can be excluded at build time with the tag `noaccel` (see AcceleratorCompiled),
// or disabled at run time with AcceleratorSupport.
package platform

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// AcceleratorSupport is the capability flag checked before issuing work on an accelerator.
// It defaults to AcceleratorCompiled, and can be set to false to disable accelerators at run time.
var AcceleratorSupport = AcceleratorCompiled

// Kind of backend a Place refers to.
type Kind int

const (
	// Host memory, accessed synchronously by the Go program.
	Host Kind = iota

	// Accelerator memory, accessed asynchronously through a Stream.
	Accelerator
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Host:
		return "Host"
	case Accelerator:
		return "Accelerator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Place identifies where memory lives. Use CPUPlace or AcceleratorPlace to create one.
type Place struct {
	Kind      Kind
	DeviceNum int
}

// CPUPlace returns the host place.
func CPUPlace() Place {
	return Place{Kind: Host}
}

// AcceleratorPlace returns the place of the accelerator device deviceNum.
func AcceleratorPlace(deviceNum int) Place {
	if deviceNum < 0 {
		exceptions.Panicf("platform.AcceleratorPlace(%d): device number must be >= 0", deviceNum)
	}
	return Place{Kind: Accelerator, DeviceNum: deviceNum}
}

// IsHost returns whether the place is host memory.
func (p Place) IsHost() bool { return p.Kind == Host }

// IsAccelerator returns whether the place is accelerator memory.
func (p Place) IsAccelerator() bool { return p.Kind == Accelerator }

// String implements fmt.Stringer.
func (p Place) String() string {
	if p.Kind == Host {
		return "CPUPlace"
	}
	return fmt.Sprintf("%sPlace(%d)", p.Kind, p.DeviceNum)
}

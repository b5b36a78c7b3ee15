// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/stridedcopy/platform"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Copy synchronously copies numBytes from src (in srcPlace) to dst (in dstPlace).
// Both places must be host places. The copy is complete when Copy returns.
//
// Overlapping ranges are handled as with the builtin copy.
func Copy(dstPlace platform.Place, dst Pointer, srcPlace platform.Place, src Pointer, numBytes int) error {
	if !dstPlace.IsHost() || !srcPlace.IsHost() {
		return errors.Errorf("memory.Copy(%s <- %s): synchronous copies are only supported between host places, use CopyOnStream",
			dstPlace, srcPlace)
	}
	dstBytes, srcBytes, err := spans(dstPlace, dst, srcPlace, src, numBytes)
	if err != nil {
		return err
	}
	copy(dstBytes, srcBytes)
	if klog.V(4).Enabled() {
		klog.Infof("memory.Copy(%s <- %s): %s", dst, src, humanize.Bytes(uint64(numBytes)))
	}
	return nil
}

// CopyOnStream issues on stream the copy of numBytes from src (in srcPlace) to dst (in dstPlace).
// It returns once the copy is enqueued: the caller must synchronize with the stream before reading dst
// from the host, and keep src unchanged until then.
//
// Accelerator places must belong to the stream's device. Pointers and bounds are checked when the copy
// is issued (errors returned immediately) and again when it executes (errors reported by the stream).
func CopyOnStream(dstPlace platform.Place, dst Pointer, srcPlace platform.Place, src Pointer, numBytes int,
	stream *platform.Stream) error {
	if stream == nil {
		return errors.Errorf("memory.CopyOnStream(%s <- %s): nil stream", dstPlace, srcPlace)
	}
	for _, place := range []platform.Place{dstPlace, srcPlace} {
		if place.IsAccelerator() && place.DeviceNum != stream.DeviceNum() {
			return errors.Errorf("memory.CopyOnStream(%s <- %s): %s doesn't belong to %s",
				dstPlace, srcPlace, place, stream)
		}
	}
	if _, _, err := spans(dstPlace, dst, srcPlace, src, numBytes); err != nil {
		return err
	}
	name := fmt.Sprintf("memcpy %s <- %s (%s)", dst, src, humanize.Bytes(uint64(numBytes)))
	return stream.Enqueue(name, func() error {
		dstBytes, srcBytes, err := spans(dstPlace, dst, srcPlace, src, numBytes)
		if err != nil {
			return err
		}
		copy(dstBytes, srcBytes)
		return nil
	})
}

func spans(dstPlace platform.Place, dst Pointer, srcPlace platform.Place, src Pointer, numBytes int) (dstBytes, srcBytes []byte, err error) {
	if numBytes < 0 {
		err = errors.Errorf("memory: negative number of bytes (%d) to copy", numBytes)
		return
	}
	dstBytes, err = dst.span(dstPlace, numBytes)
	if err != nil {
		err = errors.WithMessage(err, "memory: invalid destination")
		return
	}
	srcBytes, err = src.span(srcPlace, numBytes)
	if err != nil {
		err = errors.WithMessage(err, "memory: invalid source")
		return
	}
	return
}

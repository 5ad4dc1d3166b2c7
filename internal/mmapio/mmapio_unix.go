// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build unix

package mmapio

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type mappingImpl struct {
	fd *os.File
}

// Open reserves a contiguous anonymous range of total bytes wide, then
// replaces [0, discStart), [discStart, coldStart) and [coldStart, total)
// with fixed, file-backed mappings of the three sections of f starting at
// the given file offsets. A section with zero length is left as the
// original anonymous, inaccessible reservation.
//
// A MAP_FIXED replace can transiently race another thread's mmap in the
// same process; on EBUSY (or, on some kernels, EAGAIN) it retries a bounded
// number of times before giving up, at which point the caller should fall
// back to the non-unix build's read-based Open.
func Open(f *os.File, total, discStart, coldStart int, fileOffHot, fileOffDisc, fileOffCold int64) (*Mapping, error) {
	base, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmapio: reserve %d bytes: %w", total, err)
	}

	sections := []struct {
		start, end int
		fileOff    int64
	}{
		{0, discStart, fileOffHot},
		{discStart, coldStart, fileOffDisc},
		{coldStart, total, fileOffCold},
	}
	for _, s := range sections {
		if s.end <= s.start {
			continue
		}
		if err := mapFixedRetry(base[s.start:s.end], f, s.fileOff); err != nil {
			_ = unix.Munmap(base)
			return nil, err
		}
	}

	return &Mapping{Base: base, total: total, impl: mappingImpl{fd: f}}, nil
}

// mapFixedRetry replaces dst, a sub-slice of an existing anonymous
// reservation, with a MAP_FIXED file-backed mapping at the same address.
// MAP_FIXED mmap isn't exposed by unix.Mmap (it never lets the caller pick
// an address), so this drops to the raw syscall the way the corpus does for
// its other fixed-address mmap use, just through x/sys/unix's syscall
// wrapper and constants instead of the bare syscall package.
func mapFixedRetry(dst []byte, f *os.File, fileOff int64) error {
	if len(dst) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&dst[0]))

	const maxAttempts = 8
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(len(dst)),
			uintptr(unix.PROT_READ|unix.PROT_WRITE),
			uintptr(unix.MAP_PRIVATE|unix.MAP_FIXED),
			f.Fd(), uintptr(fileOff))
		if errno == 0 {
			return nil
		}
		lastErr = errno
		if errno != unix.EBUSY && errno != unix.EAGAIN {
			break
		}
		time.Sleep(time.Millisecond << attempt)
	}
	return fmt.Errorf("mmapio: fixed map at offset %d len %d: %w", fileOff, len(dst), lastErr)
}

// Close unmaps the whole reservation.
func (m *Mapping) Close() error {
	if m.Base == nil {
		return nil
	}
	err := unix.Munmap(m.Base)
	m.Base = nil
	return err
}

// Discard advises the kernel that the discardable section's pages may be
// dropped and re-zeroed or re-faulted from the file on next access.
func (m *Mapping) Discard(discStart, coldStart int) error {
	rng := m.Base[discStart:coldStart]
	if len(rng) == 0 {
		return nil
	}
	return unix.Madvise(rng, unix.MADV_DONTNEED)
}

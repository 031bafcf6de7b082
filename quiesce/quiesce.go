//go:build windows

// Package quiesce implements the thread quiescer (C4): suspending every
// other thread in a process before a patch write and verifying none of
// them has its instruction pointer inside the byte range about to be
// overwritten, so a patch can never land mid-instruction under a
// concurrently running thread. Grounded on hadesmem's Suspender /
// thread-enumeration-and-suspend loop in original_source, generalized
// to suspend every thread but the caller's, against any target process.
package quiesce

import (
	"fmt"

	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

// Suspension holds the thread handles suspended by SuspendAll. Resuming
// is idempotent-safe via Close, mirroring the move-only resource pattern
// the rest of the engine uses for Apply/Remove pairs.
type Suspension struct {
	process  *proc.Process
	threads  []*proc.ThreadHandle
	callerID uint32
	closed   bool
}

// SuspendAll suspends every thread of process except callingTID, the
// thread performing the patch. Threads that disappear between
// enumeration and OpenThread (exited mid-scan) are silently skipped:
// a gone thread can't be executing in the target range.
func SuspendAll(process *proc.Process, callingTID uint32) (*Suspension, error) {
	tids, err := process.Threads()
	if err != nil {
		return nil, err
	}

	s := &Suspension{process: process, callerID: callingTID}
	for _, tid := range tids {
		if tid == callingTID {
			continue
		}
		th, err := process.OpenThread(tid)
		if err != nil {
			continue
		}
		if err := th.Suspend(); err != nil {
			th.Close()
			continue
		}
		s.threads = append(s.threads, th)
	}
	return s, nil
}

// VerifyNotExecutingIn checks every suspended thread's instruction
// pointer against [rangeStart, rangeStart+rangeLen). If any thread is
// executing inside the range, the patch cannot proceed safely and the
// caller must retry or abort.
func (s *Suspension) VerifyNotExecutingIn(rangeStart uintptr, rangeLen uintptr) error {
	for _, th := range s.threads {
		ip, err := contextIP(th)
		if err != nil {
			return err
		}
		if ip >= rangeStart && ip < rangeStart+rangeLen {
			return fmt.Errorf("%w: thread %d executing at %#x", herr.ErrThreadInRange, th.TID(), ip)
		}
	}
	return nil
}

// Close resumes every suspended thread, best-effort: it keeps resuming
// the rest even if one Resume call fails, and returns the first error
// encountered so a caller can log it without losing other threads to a
// stuck suspend.
func (s *Suspension) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, th := range s.threads {
		if err := th.Resume(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := th.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// contextFlagsForIP is the minimal CONTEXT record group contextIP needs:
// CONTEXT_CONTROL carries Rip/Eip among the control registers.
const contextFlagsForIP = winapi.ContextControl

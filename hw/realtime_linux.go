//go:build linux

package hw

import (
	"runtime"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var warned sync.Map

// section is the state to restore when a transmission leaves its critical
// section.
type section struct {
	gcPercent int
	prevAttr  *unix.SchedAttr
	prevCPUs  *unix.CPUSet
}

func enterRealtime(rt Realtime) *section {
	runtime.LockOSThread()
	s := &section{gcPercent: debug.SetGCPercent(-1)}

	if rt.CPU >= 0 {
		var prev, set unix.CPUSet
		err := unix.SchedGetaffinity(0, &prev)
		if err == nil {
			set.Set(rt.CPU)
			err = unix.SchedSetaffinity(0, &set)
		}
		if err == nil {
			s.prevCPUs = &prev
		} else {
			warn("cpu pinning", err)
		}
	}

	if rt.Priority > 0 {
		prev, err := unix.SchedGetAttr(0, 0)
		if err == nil {
			attr := *prev
			attr.Size = unix.SizeofSchedAttr
			attr.Policy = unix.SCHED_FIFO
			attr.Priority = uint32(rt.Priority)
			attr.Flags = 0
			err = unix.SchedSetAttr(0, &attr, 0)
		}
		if err == nil {
			s.prevAttr = prev
		} else {
			warn("real-time priority", err)
		}
	}

	return s
}

func (s *section) exit() {
	if s == nil {
		return
	}
	if s.prevAttr != nil {
		if err := unix.SchedSetAttr(0, s.prevAttr, 0); err != nil {
			log.Errorf("gpio: restoring scheduler policy: %v", err)
		}
	}
	if s.prevCPUs != nil {
		if err := unix.SchedSetaffinity(0, s.prevCPUs); err != nil {
			log.Errorf("gpio: restoring cpu affinity: %v", err)
		}
	}
	debug.SetGCPercent(s.gcPercent)
	runtime.UnlockOSThread()
}

func warn(what string, err error) {
	if _, seen := warned.LoadOrStore(what, true); !seen {
		log.Warnf("gpio: %s unavailable, transmitting without it: %v", what, err)
	}
}

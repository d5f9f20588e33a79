//go:build !linux

package hw

import (
	"runtime"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// section is the state to restore when a transmission leaves its critical
// section. Only the thread lock and the GC are available here.
type section struct {
	gcPercent int
}

func enterRealtime(rt Realtime) *section {
	if rt.Priority > 0 || rt.CPU >= 0 {
		log.Debugf("gpio: real-time scheduling is only supported on linux")
	}
	runtime.LockOSThread()
	return &section{gcPercent: debug.SetGCPercent(-1)}
}

func (s *section) exit() {
	if s == nil {
		return
	}
	debug.SetGCPercent(s.gcPercent)
	runtime.UnlockOSThread()
}

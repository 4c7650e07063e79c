package runner

import (
	"os"
	"os/signal"
	"syscall"
)

// scanSignals are the process signals that count as scan interrupts.
var scanSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// signalSource delivers every SIGINT or SIGTERM received while a scan runs.
// Each delivery is one interrupt; the runner counts them to escalate from a
// cooperative abort to cancellation.
type signalSource struct {
	ch chan os.Signal
}

func listenSignals() *signalSource {
	s := &signalSource{ch: make(chan os.Signal, len(scanSignals))}
	signal.Notify(s.ch, scanSignals...)
	return s
}

func (s *signalSource) C() <-chan os.Signal { return s.ch }

// Stop restores the default signal behaviour for the process.
func (s *signalSource) Stop() { signal.Stop(s.ch) }

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signal

import (
	"os"
	"os/signal"
)

// shutdownRequestChannel lets a subsystem trigger the same shutdown path as
// an OS interrupt.
var shutdownRequestChannel = make(chan struct{})

// interruptSignals are the OS signals that trigger a graceful shutdown.
var interruptSignals = []os.Signal{os.Interrupt}

// InterruptListener starts listening for OS interrupt signals (SIGINT) and
// programmatic shutdown requests, returning a channel that is closed the
// first time either occurs. Repeated signals after the first are logged but
// otherwise ignored, since shutdown is already underway.
func InterruptListener() <-chan struct{} {
	c := make(chan struct{})
	go func() {
		ic := make(chan os.Signal, 1)
		signal.Notify(ic, interruptSignals...)

		select {
		case sig := <-ic:
			nyxdLog.Infof("Received signal (%s), shutting down...", sig)
		case <-shutdownRequestChannel:
			nyxdLog.Infof("Shutdown requested, shutting down...")
		}
		close(c)

		for {
			select {
			case sig := <-ic:
				nyxdLog.Infof("Received signal (%s), already shutting down...", sig)
			case <-shutdownRequestChannel:
				nyxdLog.Infof("Shutdown requested, already shutting down...")
			}
		}
	}()
	return c
}

// RequestShutdown asks any active InterruptListener goroutine to begin
// shutdown, without waiting for an OS signal.
func RequestShutdown() {
	select {
	case shutdownRequestChannel <- struct{}{}:
	default:
	}
}

// Interrupted reports whether the channel returned by InterruptListener has
// been closed.
func Interrupted(interrupted <-chan struct{}) bool {
	select {
	case <-interrupted:
		return true
	default:
		return false
	}
}

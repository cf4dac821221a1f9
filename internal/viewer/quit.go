package viewer

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/kinoview/kinoview/internal/util"
)

// quitAll is the process-wide quit flag. One-shot: it only ever transitions
// false -> true.
var quitAll atomic.Bool

// RequestQuit sets the process-wide quit flag. Idempotent and safe from any
// goroutine, including signal delivery contexts.
func RequestQuit() {
	quitAll.Store(true)
}

// ShouldQuit reports whether a process-wide quit was requested.
func ShouldQuit() bool {
	return quitAll.Load()
}

// resetQuitForTest reopens the one-shot flag. Tests only.
func resetQuitForTest() {
	quitAll.Store(false)
}

// HandleSignals maps SIGINT and SIGTERM to RequestQuit. The returned stop
// function unregisters the handler.
func HandleSignals() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigCh {
			util.GetLogger().Info("Caught signal, program will exit after any IO is complete", "signal", sig.String())
			RequestQuit()
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

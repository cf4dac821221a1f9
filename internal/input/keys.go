// Package input reads single key presses from the controlling terminal and
// forwards them to the viewer's command dispatch.
package input

import (
	"os"

	"github.com/kinoview/kinoview/internal/util"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Listen puts stdin into raw mode and forwards each key to onKey from a
// background goroutine. The returned restore function must be called before
// the process exits to put the terminal back.
func Listen(onKey func(key rune)) (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	// Save terminal state
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set terminal to raw mode")
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				util.GetLogger().Debug("Stdin read ended", "error", err)
				return
			}
			if n == 0 {
				continue
			}
			onKey(rune(buf[0]))
		}
	}()

	return func() {
		term.Restore(fd, oldState)
	}, nil
}

//go:build darwin || linux

// Package tty controls local echo on the controlling terminal.
package tty

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DevicePath is the controlling terminal of the current process.
const DevicePath = "/dev/tty"

// ErrNoTerminal is returned when the process has no controlling terminal.
var ErrNoTerminal = errors.New("no controlling terminal")

// Terminal is an open handle on the controlling terminal.
type Terminal struct {
	mu    sync.Mutex
	file  *os.File
	saved *term.State
	done  bool
}

// Current opens the controlling terminal.
func Current() (*Terminal, error) {
	return open(DevicePath)
}

func open(path string) (*Terminal, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}
	if !term.IsTerminal(int(f.Fd())) {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a terminal", ErrNoTerminal, path)
	}
	return &Terminal{file: f}, nil
}

// DisableEcho turns off local echo, keeping line editing and signals.
// The state before the first call is what TryReset restores.
func (t *Terminal) DisableEcho() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return fmt.Errorf("terminal %s already released", t.file.Name())
	}

	fd := int(t.file.Fd())
	if t.saved == nil {
		state, err := term.GetState(fd)
		if err != nil {
			return fmt.Errorf("saving terminal state: %w", err)
		}
		t.saved = state
	}

	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return fmt.Errorf("reading terminal attributes: %w", err)
	}
	termios.Lflag &^= unix.ECHO
	termios.Lflag |= unix.ICANON | unix.ISIG
	termios.Iflag |= unix.ICRNL
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, termios); err != nil {
		return fmt.Errorf("disabling echo: %w", err)
	}
	return nil
}

// TryReset restores the saved terminal state and releases the device.
// Errors are discarded. Calling it more than once is harmless.
func (t *Terminal) TryReset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.done = true

	if t.saved != nil {
		_ = term.Restore(int(t.file.Fd()), t.saved)
	}
	_ = t.file.Close()
}

// EchoEnabled reports whether the terminal currently echoes input.
func (t *Terminal) EchoEnabled() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return false, fmt.Errorf("terminal %s already released", t.file.Name())
	}
	termios, err := unix.IoctlGetTermios(int(t.file.Fd()), ioctlReadTermios)
	if err != nil {
		return false, err
	}
	return termios.Lflag&unix.ECHO != 0, nil
}

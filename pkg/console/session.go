package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albenik/go-serial/v2"
	"github.com/muesli/cancelreader"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// picocom's escape chord, since that's what this tool replaced and what
// everyone's fingers already know.
const (
	escapeChar = 0x01 // C-a
	exitChar   = 0x18 // C-x
)

type Options struct {
	// Baud defaults to 115200.
	Baud int
	// IdleTimeout closes the session after this much inactivity in either
	// direction. Zero disables it.
	IdleTimeout time.Duration
	// Transcript, if set, appends everything the device sends to this file
	// (rotated at 10MB, 3 backups kept).
	Transcript string
}

// Run opens a pass-through session on device: the controlling terminal goes
// raw and bytes are relayed both ways until the user types C-a C-x, the idle
// timeout fires, or the device errors out. The terminal is restored and the
// port closed on every path. A device-side error is returned so the caller
// can report it and go back to the menu.
func Run(device string, opts Options) error {
	baud := opts.Baud
	if baud <= 0 {
		baud = 115200
	}

	port, err := serial.Open(device,
		serial.WithBaudrate(baud),
		serial.WithReadTimeout(200),
		serial.WithWriteTimeout(1000),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	defer port.Close()

	var transcript io.Writer
	if opts.Transcript != "" {
		logger := &lumberjack.Logger{
			Filename:   opts.Transcript,
			MaxSize:    10,
			MaxBackups: 3,
		}
		defer logger.Close()
		transcript = logger
	}

	fmt.Printf("Connected to %s. Press C-a C-x to disconnect.\r\n", device)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
		defer func() {
			_ = term.Restore(fd, state)
			fmt.Println()
		}()
	}

	// A cancelable stdin lets the relay abort the pending read when the
	// session ends on the device side, so the dead reader can't swallow a
	// keystroke meant for the menu.
	input := io.Reader(os.Stdin)
	if cr, err := cancelreader.NewReader(os.Stdin); err == nil {
		defer cr.Close()
		input = cr
	}

	err = relay(port, input, os.Stdout, transcript, opts.IdleTimeout)
	if err != nil {
		return fmt.Errorf("session on %s: %w", device, err)
	}
	log.Debugf("Session on %s closed", device)
	return nil
}

// relay pumps bytes between the terminal and the port until the escape chord,
// the idle timeout, or a port error. Closing the port is how the device-side
// reader gets unblocked, so relay owns that close even though Run also defers
// one.
func relay(port io.ReadWriteCloser, input io.Reader, output io.Writer, transcript io.Writer, idle time.Duration) error {
	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())
	touch := func() { lastActivity.Store(time.Now().UnixNano()) }

	done := make(chan struct{})
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			close(done)
			port.Close()
			if cr, ok := input.(cancelreader.CancelReader); ok {
				cr.Cancel()
			}
		})
	}
	defer stop()

	portErr := make(chan error, 1)
	userDone := make(chan error, 1)

	// device -> terminal
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				touch()
				if _, werr := output.Write(buf[:n]); werr != nil {
					portErr <- werr
					return
				}
				if transcript != nil {
					_, _ = transcript.Write(buf[:n])
				}
			}
			select {
			case <-done:
				portErr <- nil
				return
			default:
			}
			if err != nil {
				portErr <- err
				return
			}
		}
	}()

	// terminal -> device. When the session ends elsewhere, stop cancels the
	// pending read (for a cancelreader input) and this goroutine exits
	// without forwarding anything further.
	go func() {
		var esc escapeFilter
		buf := make([]byte, 1024)
		for {
			n, err := input.Read(buf)
			select {
			case <-done:
				return
			default:
			}
			if n > 0 {
				touch()
				fwd, quit := esc.Filter(buf[:n])
				if len(fwd) > 0 {
					if _, werr := port.Write(fwd); werr != nil {
						userDone <- werr
						return
					}
				}
				if quit {
					userDone <- nil
					return
				}
			}
			if err != nil {
				userDone <- err
				return
			}
		}
	}()

	var tick <-chan time.Time
	if idle > 0 {
		interval := idle / 4
		if interval > time.Second {
			interval = time.Second
		}
		if interval < 10*time.Millisecond {
			interval = 10 * time.Millisecond
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case err := <-portErr:
			stop()
			return err
		case err := <-userDone:
			stop()
			return err
		case <-tick:
			since := time.Since(time.Unix(0, lastActivity.Load()))
			if since >= idle {
				log.Infof("No activity for %v, closing session", idle)
				stop()
				return nil
			}
		}
	}
}

// escapeFilter strips the C-a C-x chord out of the input stream. C-a C-a
// sends a literal C-a; C-a followed by anything else passes both bytes
// through. State survives across reads so a chord split over two reads still
// counts.
type escapeFilter struct {
	pending bool
}

// Filter returns the bytes to forward to the device and whether the exit
// chord was seen.
func (f *escapeFilter) Filter(in []byte) ([]byte, bool) {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		if f.pending {
			f.pending = false
			switch b {
			case exitChar:
				return out, true
			case escapeChar:
				out = append(out, escapeChar)
			default:
				out = append(out, escapeChar, b)
			}
			continue
		}
		if b == escapeChar {
			f.pending = true
			continue
		}
		out = append(out, b)
	}
	return out, false
}

package discover

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/albenik/go-serial/v2"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial/enumerator"
	"golang.org/x/sync/errgroup"
)

// DefaultPattern matches the device paths that USB-to-RS232 adapters show up
// under on Linux.
const DefaultPattern = "/dev/ttyUSB"

// A getty prints "<hostname> login:" and waits. The hostname is the first
// word on that line.
var loginRe = regexp.MustCompile(`(\S+) login:`)

// Console is a serial port with a live login prompt behind it.
type Console struct {
	Hostname string
	Device   string
	Product  string
	Serial   string
}

type Options struct {
	// Pattern filters enumerated ports by device path substring.
	// Defaults to DefaultPattern.
	Pattern string
	// Baud defaults to 115200. Gotta go fast.
	Baud int
	// Attempts is how many newline-then-read rounds to give each port
	// before marking it unresponsive. Defaults to 3.
	Attempts int
	// ReadTimeout bounds a single read on a port. Defaults to 500ms, so a
	// silent port costs at most Attempts * ReadTimeout.
	ReadTimeout time.Duration
	// Parallelism caps how many ports are probed at once. Defaults to 8.
	Parallelism int
}

func applyDefaults(opts Options) Options {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.Baud <= 0 {
		opts.Baud = 115200
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 500 * time.Millisecond
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	return opts
}

// Scan probes every serial port matching opts.Pattern for a login prompt and
// returns the consoles that answered, sorted by hostname. Ports that fail to
// open or never produce a prompt are logged and skipped, never fatal.
func Scan(ctx context.Context, opts Options) ([]Console, error) {
	opts = applyDefaults(opts)

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var candidates []*enumerator.PortDetails
	for _, port := range ports {
		if strings.Contains(port.Name, opts.Pattern) {
			log.Debugf("Found interesting port %s, discovering host on there", port.Name)
			candidates = append(candidates, port)
		}
	}
	if len(candidates) == 0 {
		log.Infof("Found no ports that match: %s", opts.Pattern)
		return nil, nil
	}

	log.Info("Discovering hosts on ports")

	var mu sync.Mutex
	var consoles []Console

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for _, port := range candidates {
		port := port
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hostname, err := probePort(port.Name, opts)
			if err != nil {
				log.Warnf("Skipping port %s: %v", port.Name, err)
				return nil
			}
			if hostname == "" {
				log.Warnf("Unable to detect hostname on port %s", port.Name)
				return nil
			}
			log.Infof("Found %s on %s", hostname, port.Name)
			mu.Lock()
			consoles = append(consoles, Console{
				Hostname: hostname,
				Device:   port.Name,
				Product:  port.Product,
				Serial:   port.SerialNumber,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(consoles, func(i, j int) bool {
		return consoles[i].Hostname < consoles[j].Hostname
	})
	return consoles, nil
}

// Lookup finds a discovered console by hostname.
func Lookup(consoles []Console, hostname string) (Console, bool) {
	for _, c := range consoles {
		if c.Hostname == hostname {
			return c, true
		}
	}
	return Console{}, false
}

func probePort(device string, opts Options) (string, error) {
	port, err := serial.Open(device,
		serial.WithBaudrate(opts.Baud),
		serial.WithReadTimeout(int(opts.ReadTimeout.Milliseconds())),
		serial.WithWriteTimeout(1000),
	)
	if err != nil {
		return "", err
	}
	defer port.Close()

	hostname, err := probe(port, opts.Attempts)
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// probe nudges whatever is on the other end with newlines until a login
// prompt shows up. A getty reprints the prompt on every newline, so a live
// host answers on the first or second attempt. Returns "" if nothing
// recognizable appeared within the attempt budget.
func probe(rw io.ReadWriter, attempts int) (string, error) {
	buf := make([]byte, 256)
	var seen []byte
	for i := 0; i < attempts; i++ {
		if _, err := rw.Write([]byte("\n")); err != nil {
			return "", err
		}
		n, err := rw.Read(buf)
		if n > 0 {
			seen = append(seen, buf[:n]...)
			if m := loginRe.FindSubmatch(seen); m != nil {
				return string(m[1]), nil
			}
			// Keep a tail so a prompt split across reads still matches,
			// without accumulating a chatty port's output forever.
			if len(seen) > 4096 {
				seen = seen[len(seen)-256:]
			}
		}
		if err != nil {
			return "", err
		}
	}
	return "", nil
}

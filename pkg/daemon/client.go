package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/slatevm/slate/pkg/cache"
	"github.com/slatevm/slate/pkg/engine"
)

// dialTimeout bounds the client's connection attempt. A daemon that
// cannot accept within this window is treated as unavailable.
const dialTimeout = 500 * time.Millisecond

// stopPollInterval and stopWait bound how long StopDaemon waits for the
// socket to disappear after signalling.
const (
	stopPollInterval = 50 * time.Millisecond
	stopWait         = 2 * time.Second
)

// Client talks to a running daemon and transparently falls back to
// in-process execution when no daemon can serve the request. The
// fallback path keeps its own thread-confined cache so repeated
// daemonless runs within one process still skip recompilation.
type Client struct {
	cfg   *Config
	local *cache.Cache
}

// NewClient creates a client for the daemon described by cfg.
func NewClient(cfg *Config) *Client {
	return &Client{cfg: cfg, local: cache.New(cfg.Cache.Capacity)}
}

// IsDaemonRunning reports whether the daemon's socket file exists. It is
// a cheap liveness hint only: a stale socket answers true, and the
// execution path handles that by falling back.
func (c *Client) IsDaemonRunning() bool {
	_, err := os.Stat(c.cfg.Daemon.Socket)
	return err == nil
}

// ExecuteOrFallback runs source on the daemon when possible and
// in-process otherwise. Every transport failure (dial, write, read,
// malformed response) falls back silently; both paths run the same
// pipeline, so output and error text are identical either way.
//
// A well-formed error response is a daemon answer, not a transport
// failure: it is returned as-is without falling back.
func (c *Client) ExecuteOrFallback(source string) (string, error) {
	status, body, err := c.roundTrip(source)
	if err != nil {
		return c.executeDirect(source)
	}
	if status == StatusError {
		return "", errors.New(body)
	}
	return body, nil
}

// Execute runs source on the daemon only, with no fallback.
func (c *Client) Execute(source string) (string, error) {
	status, body, err := c.roundTrip(source)
	if err != nil {
		return "", fmt.Errorf("daemon unavailable: %w", err)
	}
	if status == StatusError {
		return "", errors.New(body)
	}
	return body, nil
}

// roundTrip performs one request/response exchange. Any failure at any
// step surfaces as a single error so callers have exactly one fallback
// decision to make.
func (c *Client) roundTrip(source string) (byte, string, error) {
	conn, err := net.DialTimeout("unix", c.cfg.Daemon.Socket, dialTimeout)
	if err != nil {
		return 0, "", err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout()))
	if err := WriteRequest(conn, source); err != nil {
		return 0, "", err
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout() + c.cfg.WriteTimeout()))
	return ReadResponse(conn)
}

// executeDirect is the in-process fallback, sharing the client's local
// compilation cache across calls.
func (c *Client) executeDirect(source string) (string, error) {
	return engine.ExecuteCached(source, c.local)
}

// StopDaemon signals the daemon via its PID file and waits for the
// socket to disappear. It returns an error when no daemon appears to be
// running, the PID file is unreadable or the daemon does not exit within
// the wait window.
func (c *Client) StopDaemon() error {
	pidPath := c.cfg.Daemon.PIDFile
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("cannot read PID file %s: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("malformed PID file %s: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("no process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("cannot signal process %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(c.cfg.Daemon.Socket); err != nil {
			return nil
		}
		time.Sleep(stopPollInterval)
	}
	return fmt.Errorf("daemon (pid %d) did not shut down within %s", pid, stopWait)
}

package daemon

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/slatevm/slate/pkg/cache"
	"github.com/slatevm/slate/pkg/engine"
)

var log = commonlog.GetLogger("slate.daemon")

// pollInterval bounds how long the accept loop blocks before re-checking
// the shutdown flag.
const pollInterval = 100 * time.Microsecond

// dialProbeTimeout bounds the liveness probe against an existing socket.
const dialProbeTimeout = 250 * time.Millisecond

// Server is the long-lived daemon process: it owns the socket and PID
// file, serves connections strictly one at a time, and shares one
// compilation cache across every request it ever handles.
type Server struct {
	cfg      *Config
	cache    *cache.SharedCache
	store    *cache.Store
	shutdown atomic.Bool
}

// NewServer creates a server around the process-wide shared cache.
func NewServer(cfg *Config) *Server {
	return &Server{cfg: cfg, cache: cache.Shared()}
}

// Cache exposes the server's shared cache, mainly for stats reporting
// and tests.
func (s *Server) Cache() *cache.SharedCache {
	return s.cache
}

// Shutdown requests a graceful stop: the accept loop exits at its next
// poll and cleans up the socket and PID file. A connection already being
// served completes normally first.
func (s *Server) Shutdown() {
	s.shutdown.Store(true)
}

// Run binds the socket, writes the PID file and serves until a
// termination signal (or Shutdown call) flips the shutdown flag. On a
// clean exit both files are removed.
func (s *Server) Run() error {
	socketPath := s.cfg.Daemon.Socket
	pidPath := s.cfg.Daemon.PIDFile

	if err := s.claimSocket(socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("cannot bind socket %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Owner-only: the daemon executes arbitrary code for whoever can
	// connect.
	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("cannot set socket permissions: %w", err)
	}

	// A stale or garbage PID file is recoverable; it is simply replaced.
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("cannot write PID file %s: %w", pidPath, err)
	}
	defer os.Remove(pidPath)

	if s.cfg.Cache.Persist != "" {
		if err := s.openStore(); err != nil {
			log.Warningf("program store disabled: %s", err.Error())
		} else {
			defer s.store.Close()
		}
	}

	// Termination signals only set the flag; resources are torn down by
	// the accept loop, never from signal context.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		log.Infof("received %s, shutting down", sig)
		s.shutdown.Store(true)
	}()

	log.Noticef("listening on %s (pid %d)", socketPath, os.Getpid())

	unixListener := listener.(*net.UnixListener)
	for !s.shutdown.Load() {
		unixListener.SetDeadline(time.Now().Add(pollInterval))
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if s.shutdown.Load() {
				break
			}
			log.Errorf("accept: %s", err.Error())
			continue
		}
		s.serveConn(conn)
	}

	stats := s.cache.Stats()
	log.Noticef("shut down cleanly (%d cached programs, %d hits, %d misses)",
		stats.Size, stats.Hits, stats.Misses)
	return nil
}

// claimSocket ensures the socket path is free. A socket that answers a
// dial belongs to a live daemon and is fatal; one that does not is stale
// and gets removed.
func (s *Server) claimSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", socketPath, dialProbeTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket already in use: %s", socketPath)
	}
	log.Infof("removing stale socket %s", socketPath)
	if err := os.Remove(socketPath); err != nil {
		return fmt.Errorf("cannot remove stale socket %s: %w", socketPath, err)
	}
	return nil
}

// openStore opens the persistent program store and warms the shared
// cache from it.
func (s *Server) openStore() error {
	store, err := cache.OpenStore(s.cfg.Cache.Persist)
	if err != nil {
		return err
	}
	s.store = store
	loaded, err := store.Warm(s.cache, s.cfg.Cache.Capacity)
	if err != nil {
		log.Warningf("cache warm-up incomplete: %s", err.Error())
	}
	if loaded > 0 {
		log.Infof("warmed cache with %d stored programs", loaded)
	}
	return nil
}

// serveConn handles one connection: blocking reads with an idle timeout,
// one request executed at a time, responses in request order. The loop
// ends when the client disconnects or stays idle past the read timeout.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout()))
		source, err := ReadRequest(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrDeadlineExceeded) {
				log.Debugf("read request: %s", err.Error())
			}
			return
		}

		status, body := s.execute(source)

		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout()))
		if err := WriteResponse(conn, status, body); err != nil {
			log.Errorf("write response: %s", err.Error())
			return
		}
	}
}

// execute runs one request through the shared cache and a fresh VM.
// Compilation and execution happen outside the cache lock; only the pool
// lookup and insert are synchronized.
func (s *Server) execute(source string) (byte, string) {
	program, ok := s.cache.Get(source)
	if !ok {
		var err error
		program, err = engine.CompileSource(source)
		if err != nil {
			return StatusError, err.Error()
		}
		s.cache.Insert(source, program)
		if s.store != nil {
			if err := s.store.Put(source, program); err != nil {
				log.Warningf("persist program: %s", err.Error())
			}
		}
	}

	body, err := engine.RunProgram(program)
	if err != nil {
		// The compiled form stays cached: only execution failed.
		return StatusError, err.Error()
	}
	return StatusOK, body
}

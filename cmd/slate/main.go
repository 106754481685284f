// slate - execution engine for the Slate language
//
// Build: go build ./cmd/slate
// Usage:
//
//	slate script.sl                  # run a script (daemon if available)
//	slate -e '2 + 3'                 # run inline source
//	slate --daemon                   # run the daemon in the foreground
//	slate --stop                     # stop a running daemon
//	slate --status                   # show daemon status
//	slate --profile script.sl        # per-stage timing, always in-process
//	slate --no-daemon script.sl      # force in-process execution
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/slatevm/slate/pkg/daemon"
	"github.com/slatevm/slate/pkg/engine"
)

var (
	inlineSource = flag.String("e", "", "Execute SOURCE instead of reading a script file")
	runDaemon    = flag.Bool("daemon", false, "Run the daemon in the foreground")
	stopDaemon   = flag.Bool("stop", false, "Stop the running daemon and exit")
	showStatus   = flag.Bool("status", false, "Show daemon status (running/stopped, PID) and exit")
	profileRun   = flag.Bool("profile", false, "Time each pipeline stage (always executes in-process)")
	noDaemon     = flag.Bool("no-daemon", false, "Execute in-process even when a daemon is running")
	configPath   = flag.String("config", "", "Config file path (default: ~/.slate/config.toml)")
	verbosity    = flag.Int("v", 0, "Log verbosity (0 = quiet)")
)

func main() {
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}

	switch {
	case *showStatus:
		handleStatus(cfg)
		return
	case *stopDaemon:
		handleStop(cfg)
		return
	case *runDaemon:
		if err := daemon.NewServer(cfg).Run(); err != nil {
			fail(err)
		}
		return
	}

	source, err := loadSource()
	if err != nil {
		fail(err)
	}

	if *profileRun {
		handleProfile(source)
		return
	}

	var output string
	if *noDaemon {
		output, err = engine.Execute(source)
	} else {
		output, err = daemon.NewClient(cfg).ExecuteOrFallback(source)
	}
	if err != nil {
		fail(err)
	}
	fmt.Print(output)
	if output != "" && !strings.HasSuffix(output, "\n") {
		fmt.Println()
	}
}

func loadConfig() (*daemon.Config, error) {
	if *configPath != "" {
		return daemon.Load(*configPath)
	}
	return daemon.LoadDefault()
}

// loadSource resolves the program text: -e wins, otherwise the first
// positional argument names a script file.
func loadSource() (string, error) {
	if *inlineSource != "" {
		return *inlineSource, nil
	}
	if flag.NArg() < 1 {
		return "", fmt.Errorf("no input: pass a script file or use -e 'source'")
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", flag.Arg(0), err)
	}
	return string(data), nil
}

func handleProfile(source string) {
	res, err := engine.Profile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slate: %v\n", err)
	}
	if res.Output != "" {
		fmt.Print(res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Println()
		}
	}
	fmt.Fprintf(os.Stderr, "parse:        %v\n", res.Parse)
	fmt.Fprintf(os.Stderr, "compile:      %v\n", res.Compile)
	fmt.Fprintf(os.Stderr, "execute:      %v\n", res.Execute)
	fmt.Fprintf(os.Stderr, "total:        %v\n", res.Total)
	fmt.Fprintf(os.Stderr, "instructions: %d\n", res.Instructions)
	fmt.Fprintf(os.Stderr, "constants:    %d\n", res.Constants)
	if err != nil {
		os.Exit(1)
	}
}

func handleStop(cfg *daemon.Config) {
	client := daemon.NewClient(cfg)
	if err := client.StopDaemon(); err != nil {
		fail(err)
	}
	fmt.Println("Daemon stopped")
}

// handleStatus reports daemon liveness from the PID file and socket.
func handleStatus(cfg *daemon.Config) {
	socketPath := cfg.Daemon.Socket
	pidBytes, err := os.ReadFile(cfg.Daemon.PIDFile)
	if err != nil {
		fmt.Println("Status: stopped")
		fmt.Println("PID: none")
		fmt.Printf("Socket: %s (not found)\n", socketPath)
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
	if err != nil {
		fmt.Println("Status: stopped (invalid PID file)")
		fmt.Printf("PID file: %s\n", cfg.Daemon.PIDFile)
		return
	}

	// On Unix FindProcess always succeeds; signal 0 is the actual check.
	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.Signal(0))
	}
	if err != nil {
		fmt.Println("Status: stopped")
		fmt.Printf("PID: %d (not running)\n", pid)
		return
	}

	fmt.Println("Status: running")
	fmt.Printf("PID: %d\n", pid)
	if _, err := os.Stat(socketPath); err == nil {
		fmt.Printf("Socket: %s\n", socketPath)
	} else {
		fmt.Printf("Socket: %s (missing)\n", socketPath)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "slate: %v\n", err)
	os.Exit(1)
}

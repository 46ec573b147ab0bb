package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/decred/slog"

	"github.com/tablesmith/holdemserver/pkg/dispatcher"
	"github.com/tablesmith/holdemserver/pkg/transport"
)

var CLI struct {
	DB         string        `short:"d" long:"db" help:"Path to SQLite database file (created if missing)"`
	Host       string        `short:"H" long:"host" default:"127.0.0.1" help:"Host to listen on"`
	Port       int           `short:"p" long:"port" default:"0" help:"Port to listen on (0 for random free port)"`
	PortFile   string        `long:"portfile" help:"If set, write the selected port to this file"`
	DebugLevel string        `short:"l" long:"debuglevel" default:"info" help:"Logging level: trace, debug, info, warn, error"`
	IdleReap   time.Duration `long:"idlereap" default:"30m" help:"close tables that have sat empty this long (0 disables)"`
}

func main() {
	kong.Parse(&CLI)

	backend := slog.NewBackend(os.Stderr)
	log := backend.Logger("SRVR")
	level, ok := slog.LevelFromString(CLI.DebugLevel)
	if !ok {
		level = slog.LevelInfo
	}
	log.SetLevel(level)

	dbPath := CLI.DB
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "holdemserver.sqlite")
	}

	store, err := dispatcher.OpenStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := dispatcher.NewRegistry(store, quartz.NewReal(), log)

	if CLI.IdleReap > 0 {
		go reapIdleTables(registry, log, CLI.IdleReap)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transport.Serve(registry, backend.Logger("XPRT")))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", CLI.Host, CLI.Port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}

	if CLI.PortFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		_ = os.WriteFile(CLI.PortFile, []byte(p), 0600)
	}

	log.Infof("listening on %s", lis.Addr().String())
	if err := http.Serve(lis, mux); err != nil {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}

// reapIdleTables periodically closes tables that have sat with no occupied
// seats for longer than idleFor, freeing their actor goroutines.
func reapIdleTables(registry *dispatcher.Registry, log slog.Logger, idleFor time.Duration) {
	interval := idleFor / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		for _, id := range registry.ReapIdle(idleFor) {
			log.Infof("reaped idle table %s", id)
		}
	}
}

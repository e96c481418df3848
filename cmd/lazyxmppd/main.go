// Command lazyxmppd is the startup/CLI shell: it loads configuration,
// opens the user store, wires up the server and blocks until the
// process is signaled to stop. Everything interesting lives in
// internal/{c2s,server,userstore}; this is just the outer plumbing
// around the core endpoint (§1).
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dcbishop/lazyxmpp/internal/config"
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/server"
	"github.com/dcbishop/lazyxmpp/internal/userstore"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file (defaults built in if omitted)")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite user database")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("lazyxmppd: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("lazyxmppd: %v", err)
	}

	store, err := userstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("lazyxmppd: %v", err)
	}
	defer store.Close()

	srv := server.New(cfg, store)
	if err := srv.Start(); err != nil {
		log.Fatalf("lazyxmppd: %v", err)
	}
	log.Infof("lazyxmppd: listening on port %d (hostname=%s)", cfg.Port, cfg.Hostname)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Infof("lazyxmppd: shutting down")
}

// defaultDBPath mirrors §6's persisted-state location:
// $HOME/.config/LazyXMPP/users.db.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "LazyXMPP", "users.db")
}

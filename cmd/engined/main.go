// engined runs the casino engine HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/provablyhq/casino-engine/internal/api"
	"github.com/provablyhq/casino-engine/internal/config"
	"github.com/provablyhq/casino-engine/internal/seeds"
	"github.com/provablyhq/casino-engine/internal/session"
	"github.com/provablyhq/casino-engine/internal/store"
	"github.com/provablyhq/casino-engine/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := log.New(os.Stderr, "engined ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("opening %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	walletSvc := wallet.New(db)
	seedMgr := seeds.NewManager(db)
	sessions := session.NewManager(db, walletSvc, seedMgr, cfg.IdleAfter)
	server := api.NewServer(sessions, seedMgr, walletSvc, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sessions.RunSweeper(ctx, cfg.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("shutdown: %v", err)
	}
	logger.Println("bye")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/novel-chapter-translator/internal/config"
	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/httpapi"
	"github.com/MimeLyc/novel-chapter-translator/internal/persistence"
	"github.com/MimeLyc/novel-chapter-translator/internal/service"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("open store: %v", err)
	}
	defer store.Close()

	bus := events.NewBus()
	defer bus.Close()
	stopNotifier := events.StartLogNotifier(bus)
	defer stopNotifier()

	rt, err := service.NewRuntime(cfg, store, bus)
	if err != nil {
		log.Fatal("build runtime: %v", err)
	}

	cronRunner := cron.New()
	sched := service.NewScheduler(rt, cronRunner)

	httpSrv := httpapi.NewServer(
		service.NewJobService(rt),
		sched,
		bus,
		httpapi.WithAPIToken(cfg.HTTP.APIToken),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, sched, cronRunner, httpSrv); err != nil {
		log.Fatal("run: %v", err)
	}
}

// runWithComponents wires the scheduler onto the cron engine, serves the HTTP
// API and blocks until the context ends, then shuts both down.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, cronRunner cronEngine, httpSrv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronRunner.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown: %v", err)
	}
	<-cronRunner.Stop().Done()
	return nil
}

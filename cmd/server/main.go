// Command server runs the hostel outpass API: pass applications and
// approvals, gate scan verification, and the warden console endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"outpass/internal/defaulter"
	"outpass/internal/directory"
	gatehandler "outpass/internal/gate/handler"
	gatemetrics "outpass/internal/gate/metrics"
	gateservice "outpass/internal/gate/service"
	gatestore "outpass/internal/gate/store"
	"outpass/internal/jwttoken"
	"outpass/internal/notify"
	passhandler "outpass/internal/pass/handler"
	passmetrics "outpass/internal/pass/metrics"
	passservice "outpass/internal/pass/service"
	passstore "outpass/internal/pass/store"
	"outpass/internal/platform/config"
	"outpass/internal/platform/httpserver"
	"outpass/internal/platform/logger"
	"outpass/internal/platform/postgres"
	"outpass/internal/platform/redis"
	"outpass/internal/sysconfig"
	httptransport "outpass/internal/transport/http"
	"outpass/pkg/platform/audit"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	passes := passstore.NewPostgres(db)
	tokens := passstore.NewPostgresGuardianTokens(db)
	gateLogs := gatestore.NewPostgres(db)
	defaulters := defaulter.NewPostgres(db)

	var policy sysconfig.Store = sysconfig.NewPostgres(db)
	if cfg.Redis.URL != "" {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		policy = sysconfig.NewCached(policy, redisClient.Client, log)
		log.Info("policy cache enabled")
	}

	dir, err := loadDirectory(cfg, log)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if cfg.Email.SendGridAPIKey != "" {
		notifier = notify.NewSendGrid(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromEmail)
	} else {
		log.Warn("SENDGRID_API_KEY not set, notifications go to the log")
		notifier = notify.NewConsole(log)
	}
	dispatcher := notify.NewDispatcher(notifier, log)

	events := make(chan audit.Event, 1024)
	emitter := audit.NewEmitter(events, log)
	var publisher audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("ledger events published to kafka", "brokers", cfg.Kafka.Brokers)
	}
	worker := audit.NewWorker(audit.NewPostgres(db), publisher, events, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "outpass", "outpass")

	passService := passservice.New(
		passes, tokens, defaulters, policy, dir, dispatcher,
		emitter, passmetrics.New(), log, cfg.BaseURL,
	)
	gateService := gateservice.New(
		passes, gateLogs, defaulters, dir, dispatcher,
		emitter, gatemetrics.New(), log,
	)
	defaulterService := defaulter.NewService(defaulters, emitter, log)

	router := httptransport.NewRouter(log,
		passhandler.New(passService, log, jwtService),
		gatehandler.New(gateService, log, jwtService),
		defaulter.NewHandler(defaulterService, log, jwtService),
		sysconfig.NewHandler(policy, log, jwtService),
	)
	server := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadDirectory reads the student roster. The directory backs guardian
// email lookups and warden block scoping, so production deployments must
// provide one.
func loadDirectory(cfg config.Config, log *slog.Logger) (directory.Directory, error) {
	if cfg.RosterPath == "" {
		log.Warn("OUTPASS_ROSTER not set, starting with an empty student directory")
		return directory.NewInMemory(), nil
	}
	dir, err := directory.LoadFromFile(cfg.RosterPath)
	if err != nil {
		return nil, err
	}
	log.Info("student roster loaded", "path", cfg.RosterPath)
	return dir, nil
}

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

	"golang.org/x/sync/errgroup"

	httpapi "schoolpay/internal/http"
	"schoolpay/internal/payment"
	paymentadapters "schoolpay/internal/payment/adapters"
	"schoolpay/internal/payment/gateway"
	paymenthandler "schoolpay/internal/payment/handler"
	"schoolpay/internal/payment/metrics"
	recordstore "schoolpay/internal/payment/store/record"
	"schoolpay/internal/payment/worker"
	"schoolpay/internal/platform/config"
	"schoolpay/internal/platform/httpserver"
	"schoolpay/internal/platform/kafka"
	"schoolpay/internal/platform/logger"
	"schoolpay/internal/platform/postgres"
	"schoolpay/internal/platform/redis"
	schooladapters "schoolpay/internal/school/adapters"
	schoolhandler "schoolpay/internal/school/handler"
	schoolservice "schoolpay/internal/school/service"
	schoolstore "schoolpay/internal/school/store"
	userhandler "schoolpay/internal/user/handler"
	userservice "schoolpay/internal/user/service"
	userstore "schoolpay/internal/user/store"
	"schoolpay/pkg/platform/tx"
)

// webhookInboxBuffer sizes the in-process inbox used when Kafka is not
// configured. A full inbox surfaces as 503 to the gateway, which redelivers.
const webhookInboxBuffer = 256

// userStore is the union of user persistence surfaces the modules consume.
type userStore interface {
	userservice.Store
	paymentadapters.UserStore
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var (
		users   userStore
		schools schoolservice.Store
		records payment.RecordStore
	)
	m := metrics.New()
	paymentOpts := []payment.Option{
		payment.WithLogger(log),
		payment.WithMetrics(m),
	}
	if db != nil {
		users = userstore.NewPostgres(db)
		schools = schoolstore.NewPostgres(db)
		records = recordstore.NewPostgres(db)
		paymentOpts = append(paymentOpts, payment.WithTxRunner(tx.NewRunner(db)))
		log.Info("using postgres stores")
	} else {
		users = userstore.NewInMemory()
		schools = schoolstore.NewInMemory()
		records = recordstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	paymentOpts = append(paymentOpts, payment.WithFeePolicy(paymentadapters.NewSchoolPolicy(schools)))

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		paymentOpts = append(paymentOpts, payment.WithLocker(payment.NewRedisLocker(redisClient.Client)))
		log.Info("using redis payer locks")
	}

	paymentService := payment.NewService(
		records,
		paymentadapters.NewPayerStore(users),
		gateway.NewClient(cfg.Gateway),
		cfg.Gateway,
		paymentOpts...,
	)

	tokens := userservice.NewTokenIssuer(cfg.JWTSigningKey, cfg.JWTTTL)
	userService := userservice.NewService(users, tokens, userservice.WithLogger(log))
	schoolService := schoolservice.NewService(
		schools,
		schooladapters.NewUserDirectory(users),
		schoolservice.WithLogger(log),
	)

	wrk := worker.New(paymentService, log, m, webhookInboxBuffer)

	group, ctx := errgroup.WithContext(ctx)

	var inbox paymenthandler.Inbox = wrk
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		inbox = worker.NewKafkaInbox(producer)

		consumer, err := kafka.NewConsumer(cfg.Kafka, wrk.HandleMessage, log)
		if err != nil {
			return err
		}
		group.Go(func() error { return consumer.Run(ctx) })
		log.Info("webhook inbox on kafka", "topic", cfg.Kafka.WebhookTopic)
	} else {
		group.Go(func() error {
			err := wrk.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	router := httpapi.NewRouter(httpapi.Handlers{
		User:    userhandler.New(userService, log),
		School:  schoolhandler.New(schoolService, log),
		Payment: paymenthandler.New(paymentService, inbox, log, m),
	}, tokens, log)

	server := httpserver.New(cfg.Addr, router)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

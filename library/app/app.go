package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mtiunov/library-service-project/library/config"
	"github.com/mtiunov/library-service-project/library/internal/handler"
	"github.com/mtiunov/library-service-project/library/internal/notifier"
	"github.com/mtiunov/library-service-project/library/internal/repository"
	"github.com/mtiunov/library-service-project/library/internal/server"
	"github.com/mtiunov/library-service-project/library/internal/service"
	"github.com/mtiunov/library-service-project/library/internal/worker"
	"github.com/mtiunov/library-service-project/library/migrations"
	"github.com/mtiunov/library-service-project/pkg/kafka"
	"github.com/mtiunov/library-service-project/pkg/logger"
	"github.com/mtiunov/library-service-project/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}
	svc := service.NewService(repo, notifier.New(producer, log), log)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.NotificationConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}
	sender := notifier.NewTelegramSender(cfg.Telegram, log)
	g.Go(func() error {
		kafka.Consume(gctx, consumer, notifier.NewConsumer(sender.Send, log), log, kafka.NotificationTopic)
		return nil
	})
	g.Go(func() error {
		worker.NewOverdue(svc, cfg.Overdue.CheckInterval, log).Run(gctx)
		return nil
	})

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	if err := g.Wait(); err != nil {
		log.Error("workers stop", zap.Error(err))
	}
	if err := consumer.Close(); err != nil {
		log.Error("consumer close", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		log.Error("producer close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}

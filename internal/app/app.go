package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/config"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderstore"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ireportrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/ledger/internal/dal/repositories/outbox/postgres"
	reportmem "github.com/corray333/backend-labs/ledger/internal/dal/repositories/report/memory"
	reportpg "github.com/corray333/backend-labs/ledger/internal/dal/repositories/report/postgres"
	seqmem "github.com/corray333/backend-labs/ledger/internal/dal/sequence/memory"
	seqpg "github.com/corray333/backend-labs/ledger/internal/dal/sequence/postgres"
	seqredis "github.com/corray333/backend-labs/ledger/internal/dal/sequence/redis"
	memstore "github.com/corray333/backend-labs/ledger/internal/dal/store/memory"
	pgstore "github.com/corray333/backend-labs/ledger/internal/dal/store/postgres"
	"github.com/corray333/backend-labs/ledger/internal/otel"
	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/corray333/backend-labs/ledger/internal/service/services/compliancesvc"
	"github.com/corray333/backend-labs/ledger/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/ledger/internal/service/services/reportsvc"
	httptransport "github.com/corray333/backend-labs/ledger/internal/transport/http"
	"github.com/corray333/backend-labs/ledger/internal/worker/eod"
	outboxworker "github.com/corray333/backend-labs/ledger/internal/worker/outbox"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App represents the application.
type App struct {
	orderSvc     *ordersvc.OrderService
	reportSvc    *reportsvc.ReportService
	receiptSvc   *compliancesvc.ComplianceService
	transport    *httptransport.HTTPTransport
	outboxWorker *outboxworker.Worker
	eodScheduler *eod.Scheduler

	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitClient   *rabbitmq.Client
	otel           *otel.OtelController
}

// storage groups what the services persist into.
type storage struct {
	orders    iorderstore.IOrderStore
	reports   ireportrepo.IReportRepository
	orderSeq  isequence.ISequence
	reportSeq isequence.ISequence
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	settings, err := config.LedgerSettings()
	if err != nil {
		panic(err)
	}

	a := &App{}
	if viper.GetBool("otel.enabled") {
		a.otel = otel.MustInitOtel()
	}

	st := a.mustNewStorage()

	a.orderSvc = ordersvc.MustNewOrderService(
		ordersvc.WithOrderStore(st.orders),
		ordersvc.WithOrderSequence(st.orderSeq),
	)
	a.reportSvc = reportsvc.MustNewReportService(
		reportsvc.WithOrderStore(st.orders),
		reportsvc.WithReportRepository(st.reports),
		reportsvc.WithReportSequence(st.reportSeq),
		reportsvc.WithVAT(reportsvc.VAT{Rate: settings.VATRate, PricesInclude: settings.PricesIncludeVat}),
		reportsvc.WithLocation(settings.Location),
	)
	a.receiptSvc = mustNewComplianceService(a.orderSvc, settings)

	a.transport = httptransport.NewHTTPTransport(a.orderSvc, a.reportSvc, a.receiptSvc)
	a.transport.RegisterRoutes()

	a.mustInitOutbox()

	if viper.GetBool("scheduler.eod.enabled") {
		a.eodScheduler, err = eod.NewScheduler(a.reportSvc, viper.GetString("scheduler.eod.at"), settings.Location)
		if err != nil {
			panic(err)
		}
	}

	return a
}

func (a *App) mustNewStorage() storage {
	var st storage

	switch driver := viper.GetString("storage.driver"); driver {
	case "memory":
		st.orders = memstore.NewStore()
		st.reports = reportmem.NewReportRepository()
	case "postgres":
		a.postgresClient = postgres.MustNewClient()
		// An empty route keeps events out of the outbox.
		var route outbox.Route
		if viper.GetBool("rabbitmq.enabled") {
			route = outbox.Route{
				Exchange:   viper.GetString("rabbitmq.exchange"),
				RoutingKey: viper.GetString("rabbitmq.routing_key"),
				MaxRetries: viper.GetInt("rabbitmq.outbox.max_retries"),
			}
		}
		st.orders = pgstore.MustNewStore(
			pgstore.WithPostgresClient(a.postgresClient),
			pgstore.WithOutboxRoute(route),
		)
		st.reports = reportpg.NewReportRepository(a.postgresClient.Pool())
	default:
		panic(fmt.Sprintf("unknown storage.driver %q", driver))
	}

	switch driver := viper.GetString("sequence.driver"); driver {
	case "memory":
		if a.postgresClient != nil {
			panic("sequence.driver memory would reuse numbers after a restart of durable storage")
		}
		st.orderSeq = seqmem.NewSequence(0)
		st.reportSeq = seqmem.NewSequence(0)
	case "postgres":
		if a.postgresClient == nil {
			a.postgresClient = postgres.MustNewClient()
		}
		st.orderSeq = seqpg.NewSequence(a.postgresClient.Pool(), seqpg.OrderNumberSeq)
		st.reportSeq = seqpg.NewSequence(a.postgresClient.Pool(), seqpg.ReportNumberSeq)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.redisClient = seqredis.MustNewClient(ctx)
		st.orderSeq = seqredis.NewSequence(a.redisClient, seqredis.OrderNumberKey)
		st.reportSeq = seqredis.NewSequence(a.redisClient, seqredis.ReportNumberKey)
	default:
		panic(fmt.Sprintf("unknown sequence.driver %q", driver))
	}

	slog.Info("Storage initialized",
		"storage", viper.GetString("storage.driver"),
		"sequence", viper.GetString("sequence.driver"),
	)

	return st
}

func mustNewComplianceService(orders *ordersvc.OrderService, settings config.Ledger) *compliancesvc.ComplianceService {
	level, err := compliancesvc.ParseLevel(viper.GetString("compliance.qr.level"))
	if err != nil {
		panic(err)
	}

	seller := compliancesvc.Seller{
		Name:      viper.GetString("compliance.seller_name"),
		VATNumber: viper.GetString("compliance.vat_number"),
	}
	if seller.Name == "" || seller.VATNumber == "" {
		slog.Warn("Compliance seller is not configured, receipt QR requests will fail")
	}

	return compliancesvc.MustNewComplianceService(
		compliancesvc.WithOrderGetter(orders),
		compliancesvc.WithSeller(seller),
		compliancesvc.WithVAT(settings.VATRate, settings.PricesIncludeVat),
		compliancesvc.WithQR(level, viper.GetInt("compliance.qr.size")),
	)
}

// mustInitOutbox starts publishing only when events are written, which needs durable storage.
func (a *App) mustInitOutbox() {
	if !viper.GetBool("rabbitmq.enabled") {
		return
	}
	if a.postgresClient == nil || viper.GetString("storage.driver") != "postgres" {
		slog.Warn("RabbitMQ publishing requires postgres storage, outbox worker disabled")

		return
	}

	a.rabbitClient = rabbitmq.MustNewClient()
	if err := a.rabbitClient.DeclareExchange(viper.GetString("rabbitmq.exchange")); err != nil {
		panic(err)
	}

	a.outboxWorker = outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(a.postgresClient.Pool()),
		a.rabbitClient,
	)
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	if a.outboxWorker != nil {
		g.Go(func() error {
			a.outboxWorker.Start(gctx)

			return nil
		})
	}

	if a.eodScheduler != nil {
		if err := a.eodScheduler.Start(); err != nil {
			slog.Error("Failed to start EOD scheduler", "error", err)
		}
	}

	<-gctx.Done()
	slog.Info("Shutdown signal received")

	a.shutdown()

	if err := g.Wait(); err != nil {
		slog.Error("Application stopped with error", "error", err)
	}

	a.close()
	slog.Info("Application shutdown complete")
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.eodScheduler != nil {
		if err := a.eodScheduler.Shutdown(); err != nil {
			slog.Error("EOD scheduler shutdown error", "error", err)
		}
	}

	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
	}
}

func (a *App) close() {
	if a.rabbitClient != nil {
		if err := a.rabbitClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}

	if a.postgresClient != nil {
		a.postgresClient.Close()
		slog.Info("Database connection closed gracefully")
	}

	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.otel.Shutdown(ctx); err != nil {
			slog.Error("Tracer provider shutdown error", "error", err)
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/exporter"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/importer"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/leads"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// store is satisfied by postgres.Store and memstore.Store.
type store interface {
	Catalog() catalog.Store
	Orders() orders.Store
	Leads() leads.Repository
	Ping(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.Init(cfg.Log.Level, cfg.Environment, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting", cfg.Fields()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB; without Postgres the API keeps running on the in-memory store.
	var db store
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.Connect(connectCtx, cfg.PostgresDSN)
	if err == nil {
		err = postgres.Migrate(connectCtx, pool)
		if err != nil {
			pool.Close()
		}
	}
	connectCancel()
	if err != nil {
		log.Warn("postgres unavailable, serving from memory", zap.Error(err))
		db = memstore.New()
	} else {
		defer pool.Close()
		db = postgres.NewStore(pool)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed, cache calls will degrade", zap.Error(err))
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.Named("producer"))
	prod.Start(ctx)

	pricing := orders.Pricing{
		FreeDeliveryThreshold: cfg.Checkout.FreeDeliveryThreshold,
		CourierFee:            cfg.Checkout.CourierFee,
		TransportFee:          cfg.Checkout.TransportFee,
	}
	orderSvc := orders.NewService(db.Orders(), pricing, cfg.Checkout.OrderNumberAttempts, log.Named("orders"))

	router := httpx.NewRouter(log, cfg.ServiceName,
		&httpx.Authenticator{Tokens: auth.NewTokens(cfg.Auth.SigningKey, cfg.Auth.TokenTTL)},
		db,
		&httpx.OrdersHandler{
			Service:     orderSvc,
			Cache:       redisx.NewOrderCache(rdb),
			Producer:    prod,
			ServiceName: cfg.ServiceName,
		},
		&httpx.ImportHandler{Importer: importer.New(db.Catalog(), cfg.Import, log.Named("importer"))},
		&httpx.ExportHandler{Exporter: exporter.New(db.Catalog(), log.Named("exporter"))},
		&httpx.LeadsHandler{Service: leads.NewService(db.Leads(), log.Named("leads"))},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	prod.Close()      // close the inbox, flush the writer
	cancel()          // stop the producer loop
	prod.WaitClosed() // drain
}

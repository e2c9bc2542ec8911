package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/echoesonmars/tabys-back/internal/blob"
	"github.com/echoesonmars/tabys-back/internal/broker"
	"github.com/echoesonmars/tabys-back/internal/cache"
	"github.com/echoesonmars/tabys-back/internal/config"
	"github.com/echoesonmars/tabys-back/internal/eventengine"
	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/echoesonmars/tabys-back/internal/features/category"
	"github.com/echoesonmars/tabys-back/internal/features/inventory"
	"github.com/echoesonmars/tabys-back/internal/features/order"
	"github.com/echoesonmars/tabys-back/internal/features/product"
	"github.com/echoesonmars/tabys-back/internal/features/promo"
	"github.com/echoesonmars/tabys-back/internal/middlewares"
	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

type ServerConfig struct {
	Addr      string
	DB        *sql.DB
	Blobs     blob.Store
	Redis     *redis.Client // optional
	Publisher broker.Publisher
}

type server struct {
	*ServerConfig

	doneCh        chan struct{}   // used to signal internal go routines to shutdown
	internalSrvWG *sync.WaitGroup // used to wait for all internal go routines to finish before shutting down the server.

	eventEngine eventengine.SubscribeRegisterPublisher
	srv         *http.Server
}

func NewServer(serverConfig *ServerConfig) *server {
	srv := &server{
		ServerConfig:  serverConfig,
		doneCh:        make(chan struct{}),
		internalSrvWG: &sync.WaitGroup{},
	}

	return srv
}

func (s *server) Run() {
	router := chi.NewRouter()
	middleware := middlewares.NewMiddleware(obs.Logger)

	// strip trailing slashes at the end of the url
	// e.g. /products/1/ -> /products/1
	router.Use(chimiddleware.StripSlashes)
	router.Use(middleware.RequestID)
	router.Use(middleware.AccessLog)

	if err := s.prep(); err != nil {
		obs.Logger.Error("server_prep_failed", "error", err)
		os.Exit(1)
	}

	apiRouter, err := s.apiRouter()
	if err != nil {
		obs.Logger.Error("server_routes_failed", "error", err)
		os.Exit(1)
	}
	router.Mount("/api", apiRouter)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.Addr),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server and listen for [os.Signal] signals to graceful shutdown server.
	s.listenAndServe()
}

func (s *server) listenAndServe() {
	shutdownCtx, shutdownCancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer shutdownCancel()

	errGrp, shutdownCtx := errgroup.WithContext(shutdownCtx)

	errGrp.Go(
		func() error {
			obs.Logger.Info("server listening", "port", s.Addr)

			if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}

			return nil
		},
	)

	errGrp.Go(
		func() error {
			<-shutdownCtx.Done() // block and listen shutdown signals
			obs.Logger.Info("server is gracefully shutting down")

			ctx, cancel := context.WithTimeout(
				context.Background(),
				config.Env.ShutdownTimeout,
			)
			defer cancel()

			obs.Logger.Info("waiting for pending requests to finish")
			if err := s.srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server failed shutdown gracefully: %w", err)
			}

			return nil
		},
	)

	exitCode := 0
	if err := errGrp.Wait(); err != nil {
		obs.Logger.Error("server_stopped_with_error", "error", err)
		exitCode = 1
	}

	obs.Logger.Info("waiting for internal go routines")
	close(s.doneCh)
	s.internalSrvWG.Wait()

	s.closeResources()

	obs.Logger.Info("server has been gracefully shutdown")
	os.Exit(exitCode)
}

func (s *server) closeResources() {
	if err := s.Publisher.Close(); err != nil {
		obs.Logger.Warn("publisher_close_failed", "error", err)
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			obs.Logger.Warn("redis_close_failed", "error", err)
		}
	}

	if err := s.DB.Close(); err != nil {
		obs.Logger.Warn("db_close_failed", "error", err)
	}
}

// prep prepares server dependencies needed for server to function
func (s *server) prep() error {
	eventEngine, err := eventengine.NewEventEngine(
		&eventengine.EventEngineConfig{
			DoneCh:        s.doneCh,
			InternalSrvWG: s.internalSrvWG,
		},
	)
	if err != nil {
		return err
	}
	s.eventEngine = eventEngine

	// published by the order engine
	s.eventEngine.RegisterEvents(
		event.OrderPlacedEventName,
	)

	return nil
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		obs.Logger.Error("health_check_failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *server) apiRouter() (*chi.Mux, error) {
	r := chi.NewRouter()
	middleware := middlewares.NewMiddleware(obs.Logger)

	r.Get("/health", s.healthHandler)

	// inventory feature
	inventoryStore := inventory.NewStore(s.DB)
	inventoryService := inventory.NewService(
		inventoryStore,
		config.Env.LowStockThreshold,
	)
	_, err := inventory.NewEventHandler(&inventory.HandlerEventsConfig{
		InternalSrvWG: s.internalSrvWG,
		EventEngine:   s.eventEngine,
		Service:       inventoryService,
		Threshold:     config.Env.LowStockThreshold,
	})
	if err != nil {
		return nil, err
	}

	// broker forwarder, subscribes after every event is registered
	_, err = broker.NewEventHandler(&broker.HandlerEventsConfig{
		InternalSrvWG: s.internalSrvWG,
		EventEngine:   s.eventEngine,
		Publisher:     s.Publisher,
	})
	if err != nil {
		return nil, err
	}

	// order feature
	orderStore := order.NewStore(s.DB)
	orderEngine := order.NewEngine(order.EngineConfig{
		Store:        orderStore,
		Events:       s.eventEngine,
		QuantityKind: config.Env.QuantityKind,
		TxTimeout:    config.Env.OrderTxTimeout,
	})
	orderService := order.NewService(
		orderEngine,
		orderStore,
		order.NewIdempotencyGuard(s.Redis, config.Env.IdempotencyTTL),
	)
	orderHandler := order.NewHandler(
		orderService,
		middleware,
		config.Env.RequestTimeout,
	)
	orderHandler.RegisterRoutes(r)

	// products feature
	productStore := product.NewStore(s.DB)
	productService := product.NewService(
		productStore,
		s.Blobs,
		config.Env.PublicAssetBaseURL,
	)
	productHandler := product.NewHandler(
		productService,
		middleware,
		product.HandlerConfig{
			RequestTimeout: config.Env.RequestTimeout,
			MaxUploadBytes: config.Env.MaxUploadBytes,
		},
	)
	productHandler.RegisterRoutes(r)

	// category feature
	categoryStore := category.NewStore(s.DB)
	categoryService := category.NewService(
		categoryStore,
		category.ServiceConfig{
			Blobs:      s.Blobs,
			Cache:      cache.New(s.Redis, "categories", config.Env.CategoryCacheTTL),
			PublicBase: config.Env.PublicAssetBaseURL,
			MaxDepth:   config.Env.CategoryMaxDepth,
		},
	)
	categoryHandler := category.NewHandler(
		categoryService,
		middleware,
		category.HandlerConfig{
			RequestTimeout: config.Env.RequestTimeout,
			MaxUploadBytes: config.Env.MaxUploadBytes,
		},
	)
	categoryHandler.RegisterRoutes(r)

	// promo feature
	promoStore := promo.NewStore(s.DB)
	promoService := promo.NewService(promoStore)
	promoHandler := promo.NewHandler(
		promoService,
		middleware,
		config.Env.RequestTimeout,
	)
	promoHandler.RegisterRoutes(r)

	return r, nil
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/SrFlag/Melos-Company/internal/address"
	"github.com/SrFlag/Melos-Company/internal/auth"
	"github.com/SrFlag/Melos-Company/internal/cart"
	"github.com/SrFlag/Melos-Company/internal/cartstore"
	"github.com/SrFlag/Melos-Company/internal/catalog"
	"github.com/SrFlag/Melos-Company/internal/checkout"
	"github.com/SrFlag/Melos-Company/internal/config"
	"github.com/SrFlag/Melos-Company/internal/consumer"
	"github.com/SrFlag/Melos-Company/internal/db"
	"github.com/SrFlag/Melos-Company/internal/domain"
	healthgrpc "github.com/SrFlag/Melos-Company/internal/grpc"
	h "github.com/SrFlag/Melos-Company/internal/http"
	"github.com/SrFlag/Melos-Company/internal/logger"
	"github.com/SrFlag/Melos-Company/internal/mail"
	"github.com/SrFlag/Melos-Company/internal/orders"
	"github.com/SrFlag/Melos-Company/internal/payment"
	"github.com/SrFlag/Melos-Company/internal/publisher"
	"github.com/SrFlag/Melos-Company/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog := logger.New("info", true)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped with error")
	}
	log.Info().Msg("storefront exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Database
	conn, err := db.Open(&db.Credentials{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		Path:     cfg.DBPath,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, cfg.DBDriver); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	products := catalog.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	// Cart storage: redis always, mongo as the durable tier when configured
	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	redisClient, err := cartstore.ConnectRedis(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	redisStore := cartstore.NewRedisStore(redisClient, log)

	var store cartstore.Store = redisStore
	deps := map[string]healthgrpc.Pinger{
		"db":    healthgrpc.PingFunc(conn.PingContext),
		"redis": healthgrpc.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}

	if cfg.MongoURI != "" {
		mongoDB, err := cartstore.ConnectMongoDB(startCtx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			_ = mongoDB.Client().Disconnect(dctx)
		}()

		mongoStore := cartstore.NewMongoStore(mongoDB, log)
		if err := mongoStore.CreateIndexes(startCtx); err != nil {
			return err
		}
		store = cartstore.NewTieredStore(mongoStore, redisStore, log)
		deps["mongo"] = healthgrpc.PingFunc(func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) })
		log.Info().Msg("cart store: mongodb with redis cache")
	}

	registry, err := cart.NewRegistry(store, cfg.SessionIdleTTL, log)
	if err != nil {
		return err
	}

	// Checkout
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var fulfillment checkout.Fulfillment
	switch cfg.Mode() {
	case domain.ModeHostedRedirect:
		mp := payment.NewMercadoPagoClient(cfg.MPBaseURL, cfg.MPAccessToken, httpClient)
		fulfillment = checkout.NewHostedRedirect(payment.NewBreakerClient(mp, log), cfg.PublicBaseURL)
	default:
		fulfillment = checkout.NewMessageHandoff(cfg.WhatsAppNumber)
	}

	builder, err := checkout.NewBuilder(
		orderRepo,
		fulfillment,
		address.NewBreakerLookup(address.NewViaCEPClient(cfg.ViaCEPBaseURL, httpClient), log),
		log,
	)
	if err != nil {
		return err
	}
	log.Info().Str("mode", string(builder.Mode())).Msg("checkout ready")

	// Image uploads are optional outside production
	var images storage.ImageStore
	gcsClient, err := storage.NewClient(startCtx, cfg.GCSCredentialsFile)
	if err != nil {
		log.Warn().Err(err).Msg("image storage disabled")
	} else {
		defer gcsClient.Close()
		images = storage.NewGCSImageStore(gcsClient, cfg.GCSBucket, cfg.GCSPublicBaseURL)
	}

	authn := auth.NewAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.JWTTTL)

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.RequestTimeout, AllowedOrigins: cfg.CORSOrigins},
		h.Handlers{
			Cart:     h.NewCartHandler(registry, products, cfg.RequestTimeout),
			Products: h.NewProductHandler(products, images, cfg.RequestTimeout),
			Checkout: h.NewCheckoutHandler(builder, registry),
			Orders:   h.NewOrdersHandler(orderRepo, cfg.WhatsAppNumber, cfg.RequestTimeout),
			Auth:     h.NewAuthHandler(authn),
		},
		authn,
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	health := healthgrpc.NewHealthServer(deps, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		return health.Serve(gctx, lis)
	})

	if len(cfg.KafkaBrokers) > 0 {
		writer := publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		poller := publisher.NewOutboxPoller(orderRepo, writer, log)
		g.Go(func() error {
			return poller.Run(gctx)
		})

		if cfg.SendGridAPIKey != "" {
			reader := consumer.NewKafkaReader(cfg.KafkaTopic, cfg.KafkaBrokers...)
			notifier := consumer.NewOrderNotifier(reader, mail.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, log), log)
			g.Go(func() error {
				return notifier.Run(gctx)
			})
		} else {
			log.Warn().Msg("SENDGRID_API_KEY not set, order mails disabled")
		}
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("storefront http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server...")
		sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

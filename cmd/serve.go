package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/auth"
	"github.com/vibast-solutions/ms-go-payment-verification/app/controller"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
	paymentgrpc "github.com/vibast-solutions/ms-go-payment-verification/app/grpc"
	"github.com/vibast-solutions/ms-go-payment-verification/app/publisher"
	"github.com/vibast-solutions/ms-go-payment-verification/app/repository"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/storage"
	"github.com/vibast-solutions/ms-go-payment-verification/app/types"
	"github.com/vibast-solutions/ms-go-payment-verification/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the payment verification service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type httpControllers struct {
	payments      *controller.PaymentController
	verifications *controller.VerificationController
	disputes      *controller.DisputeController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	controllers := httpControllers{
		payments:      controller.NewPaymentController(paymentService),
		verifications: controller.NewVerificationController(paymentService),
		disputes:      controller.NewDisputeController(paymentService),
	}
	grpcPaymentServer := paymentgrpc.NewServer(paymentService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)
	tokenParser := auth.NewTokenParser(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	e := setupHTTPServer(controllers, tokenParser, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, healthSrv, lis := setupGRPCServer(cfg, grpcPaymentServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	controllers httpControllers,
	tokenParser *auth.TokenParser,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", controllers.payments.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("", requireRequestID(), auth.RequireActor(tokenParser))

	payments := api.Group("/payments")
	payments.GET("", controllers.payments.ListPayments)
	payments.POST("/:appointmentId", controllers.payments.SubmitPayment)
	payments.GET("/:id", controllers.payments.GetPayment)
	payments.POST("/:id/verify", controllers.payments.VerifyPayment)
	payments.POST("/:id/refund", controllers.payments.RequestRefund)
	payments.POST("/:id/refund/settle", controllers.payments.SettleRefund)
	payments.POST("/:id/refund/fail", controllers.payments.FailRefund)

	verifications := api.Group("/verifications")
	verifications.GET("", controllers.verifications.ListQueue)
	verifications.POST("/claim", controllers.verifications.ClaimNext)
	verifications.GET("/:id", controllers.verifications.GetVerification)
	verifications.POST("/:id/claim", controllers.verifications.Claim)
	verifications.POST("/:id/decide", controllers.verifications.Decide)
	verifications.POST("/:id/release", controllers.verifications.Release)

	disputes := api.Group("/disputes")
	disputes.POST("", controllers.disputes.RaiseDispute)
	disputes.GET("/:id", controllers.disputes.GetDispute)
	disputes.GET("/:id/history", controllers.disputes.DisputeHistory)
	disputes.POST("/:id/escalate", controllers.disputes.EscalateDispute)
	disputes.POST("/:id/resolve", controllers.disputes.ResolveDispute)

	internal := e.Group("/internal", requireRequestID(), internalAuthMiddleware.RequireInternalAccess(appServiceName))
	internal.GET("/appointments/:appointmentId/payment", controllers.payments.GetAppointmentPayment)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required", Code: "INVALID_REQUEST"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	paymentServer *paymentgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, *health.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			paymentgrpc.RecoveryInterceptor(),
			paymentgrpc.RequestIDInterceptor(),
			paymentgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	paymentgrpc.RegisterPaymentVerificationServiceServer(grpcSrv, paymentServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(paymentgrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return grpcSrv, healthSrv, lis
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	paymentService := service.NewPaymentService(
		repository.NewTransactor(db, factory.NewModuleLogger("transactor")),
		service.Repositories{
			Payments:      repository.NewPaymentRepository(db),
			Verifications: repository.NewVerificationRepository(db),
			Disputes:      repository.NewDisputeRepository(db),
			History:       repository.NewDisputeHistoryRepository(db),
			Outbox:        repository.NewOutboxRepository(db),
			RefundPolicy:  repository.NewRefundPolicyRepository(db),
		},
		auth.NewRoleAuthorizer(),
		service.Config{
			Payments: cfg.Payments,
			Refund:   cfg.Refund,
			Outbox:   cfg.Outbox,
		},
	)

	eventPublisher, err := publisher.New(cfg)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to initialize outbox publisher")
	}
	paymentService.WithPublisher(eventPublisher)

	receipts, redisClient := mustCreateReceiptResolver(cfg)
	paymentService.WithReceiptResolver(receipts)

	cleanup := func() {
		if err := eventPublisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close outbox publisher")
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis client")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}

// mustCreateReceiptResolver signs receipts through Cloudinary when credentials are
// configured and caches signed URLs in Redis when an address is configured.
func mustCreateReceiptResolver(cfg *config.Config) (*storage.ReceiptResolver, *redis.Client) {
	if cfg.Cloudinary.CloudName == "" {
		return storage.NewReceiptResolver(nil, nil), nil
	}

	signer, err := storage.NewCloudinarySigner(cfg.Cloudinary)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize receipt signer")
	}
	if cfg.Redis.Addr == "" {
		return storage.NewReceiptResolver(signer, nil), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return storage.NewReceiptResolver(signer, storage.NewURLCache(client, cfg.Redis.ReceiptURLTTL)), client
}

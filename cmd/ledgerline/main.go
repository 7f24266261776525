package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/cmd/ledgerline/cli"
	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/dashboard"
	"github.com/ledgerline/ledgerline/internal/masterdata/customers"
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	"github.com/ledgerline/ledgerline/internal/masterdata/vendors"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/posting"
	postinghttp "github.com/ledgerline/ledgerline/internal/posting/http"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
	"github.com/ledgerline/ledgerline/jobs"
	"github.com/ledgerline/ledgerline/migrations"
	"github.com/ledgerline/ledgerline/report"
)

const usage = `usage: ledgerline [command]

commands:
  serve                         run the web server (default)
  migrate                       apply pending database migrations
  admin create-user --email E   create a user; password from --password or stdin
  jobs trigger <task>           enqueue a maintenance task
  jobs stats [--json]           print default queue statistics
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var code int
	switch cmd {
	case "serve":
		code = serve(ctx, stop, cfg, logger)
	case "migrate":
		code = migrate(ctx, cfg, logger)
	case "admin":
		code = admin(ctx, cfg, logger, args)
	case "jobs":
		code = jobsCommand(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func openPool(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*pgxpool.Pool, bool) {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 10, MaxConnIdleTime: 5 * time.Minute})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return nil, false
	}
	return pool, true
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool, logger)
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		return 1
	}
	if _, err := rbac.NewService(rbac.NewStore(pool)).Seed(ctx); err != nil {
		logger.Error("seed permissions", slog.Any("error", err))
		return 1
	}
	logger.Info("database up to date", slog.Int("applied", len(applied)))
	return 0
}

func admin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) == 0 || args[0] != "create-user" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	fs := flag.NewFlagSet("admin create-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "user password (read from stdin when empty)")
	role := fs.String("role", rbac.AdminRole, "role to grant")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	rbacService := rbac.NewService(rbac.NewStore(pool))
	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	helper, err := cli.NewAdminCLI(authService, rbacService)
	if err != nil {
		logger.Error("admin cli", slog.Any("error", err))
		return 1
	}
	return helper.CreateUserCommand(ctx, cli.CreateUserOptions{
		Email:      *email,
		Password:   *password,
		Role:       *role,
		JSONOutput: *asJSON,
	})
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	helper := cli.NewJobsCLI(cfg.RedisAddr)
	defer helper.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs trigger: task name required")
			return 2
		}
		info, err := helper.Trigger(ctx, args[1], cfg.IdempotencyRetention)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "enqueued %s as %s\n", info.Type, info.ID)
		return 0
	case "stats":
		fs := flag.NewFlagSet("jobs stats", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "print as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		stats, err := helper.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if err := cli.PrintStats(os.Stdout, stats, *asJSON); err != nil {
			return 1
		}
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) int {
	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ledgerline_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		return 1
	}
	pages := view.NewResponder(templates, csrfManager, logger)
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewStore(pool))
	rbacMiddleware := rbac.Middleware{Logger: logger}
	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	authHandler := auth.NewHandler(logger, authService, pages, sessionManager)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL, logger)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, decimal.NewFromInt(int64(cfg.LowStockThreshold)))
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, pages, rbacMiddleware)

	observers := app.Observers{
		Postings: []posting.Observer{metrics, dashboardCache},
		Imports:  []items.ImportObserver{metrics, dashboardCache},
	}

	customerService := customers.NewService(customers.NewRepository(pool))
	vendorService := vendors.NewService(vendors.NewRepository(pool))
	itemRepo := items.NewRepository(pool)
	itemService := items.NewService(itemRepo, posting.NewSerial)
	importer := items.NewImporter(itemRepo, posting.NewSerial, observers, logger)
	itemHandler := items.NewHandler(logger, itemService, importer, pages, rbacMiddleware)

	var jobClient *jobs.Client
	if cfg.ImportAsync {
		jobClient, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			return 1
		}
		defer jobClient.Close()
		itemHandler = itemHandler.WithQueue(jobClient, cfg.UploadDir)
	}

	postingService := posting.NewService(
		posting.NewRepository(pool),
		shared.NewAuditLogger(pool),
		shared.NewIdempotencyStore(pool),
		posting.ServiceConfig{Logger: logger, Observer: observers},
	)
	pdf := report.NewClient(cfg.GotenbergURL)
	if !pdf.Configured() {
		logger.Warn("gotenberg url not set, invoice pdf export disabled")
	}
	saleHandler := postinghttp.NewHandler(postinghttp.Config{
		Kind: posting.KindSale, Service: postingService, Parties: customerService, Items: itemService,
		Pages: pages, PDF: pdf, RBAC: rbacMiddleware, Logger: logger,
	})
	purchaseHandler := postinghttp.NewHandler(postinghttp.Config{
		Kind: posting.KindPurchase, Service: postingService, Parties: vendorService, Items: itemService,
		Pages: pages, PDF: pdf, RBAC: rbacMiddleware, Logger: logger,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pages:            pages,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		DashboardHandler: dashboardHandler,
		CustomerHandler:  customers.NewHandler(logger, customerService, pages, rbacMiddleware),
		VendorHandler:    vendors.NewHandler(logger, vendorService, pages, rbacMiddleware),
		ItemHandler:      itemHandler,
		SaleHandler:      saleHandler,
		PurchaseHandler:  purchaseHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/auth"
	"github.com/hitoshi/fletnix/internal/cache"
	"github.com/hitoshi/fletnix/internal/catalog"
	"github.com/hitoshi/fletnix/internal/config"
	"github.com/hitoshi/fletnix/internal/credential"
	"github.com/hitoshi/fletnix/internal/database"
	"github.com/hitoshi/fletnix/internal/handler"
	"github.com/hitoshi/fletnix/internal/identity"
	"github.com/hitoshi/fletnix/internal/importer"
	"github.com/hitoshi/fletnix/internal/logger"
	"github.com/hitoshi/fletnix/internal/metrics"
	"github.com/hitoshi/fletnix/internal/middleware"
	"github.com/hitoshi/fletnix/internal/repository"
	"github.com/hitoshi/fletnix/internal/security"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("falling back to info log level", slog.String("error", err.Error()))
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// help と healthcheck は設定を必要としないため、フル初期化をスキップする
	switch cmd {
	case CommandHelp:
		return writeUsage(w)
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, commandArg(args, 0))
	case CommandImport:
		return runImport(cfg, commandArg(args, 0))
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	showRepo, closeCache, err := newShowRepository(cfg, repository.NewPostgresShowRepo(db), collector)
	if err != nil {
		return err
	}
	defer closeCache()

	// 4. ドメインサービスの初期化
	tokens := credential.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	resolver := identity.NewResolver(tokens, userRepo, collector)
	authService := auth.NewService(userRepo, tokens, auth.ServiceConfig{BcryptCost: cfg.BcryptCost})
	catalogService := catalog.NewService(showRepo, agepolicy.Default, collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Resolver:          resolver,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,

		DB:             db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: handler.NewAuthServiceAdapter(authService),

		CatalogService: handler.NewCatalogServiceAdapter(catalogService),
		Paging: catalog.Paging{
			DefaultPageSize: cfg.CatalogDefaultPageSize,
			MaxPageSize:     cfg.CatalogMaxPageSize,
		},
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newShowRepository はカタログリポジトリを構築する。
// REDIS_URLが設定されている場合はRedisキャッシュで包む。返す関数でRedis接続を閉じる。
func newShowRepository(cfg *config.Config, base repository.ShowRepository, m metrics.MetricsCollector) (repository.ShowRepository, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("catalog cache disabled")
		return base, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// キャッシュ障害時はストアに直接問い合わせるため起動は継続する
		slog.Warn("redis is unreachable; catalog cache will be bypassed until it recovers",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("catalog cache enabled",
		slog.String("addr", opts.Addr),
		slog.Duration("ttl", cfg.CatalogCacheTTL),
	)
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}
	return cache.NewCachedShowRepo(base, client, cfg.CatalogCacheTTL, m), closeFn, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// action が "status" の場合は適用せずに現在のバージョンのみを表示する。
func runMigrate(cfg *config.Config, action string) error {
	latest, err := database.LatestVersion()
	if err != nil {
		return err
	}
	slog.Info("running database migrations",
		slog.String("action", migrateActionOrDefault(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Uint64("latest_version", uint64(latest)),
	)

	switch action {
	case "", "up":
		state, err := database.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully",
			slog.Uint64("version", uint64(state.Version)),
		)
		return nil
	case "status":
		state, err := database.MigrationStatus(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		slog.Info("database migration status",
			slog.Uint64("version", uint64(state.Version)),
			slog.Bool("dirty", state.Dirty),
			slog.Bool("pending", state.Version < latest),
		)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q: use up or status", action)
	}
}

func migrateActionOrDefault(action string) string {
	if action == "" {
		return "up"
	}
	return action
}

// runImport はCSVファイルからカタログを取り込む。
// 取り込みはshow_idをキーにした冪等な操作で、再実行すると既存作品を更新する。
func runImport(cfg *config.Config, path string) error {
	if path == "" {
		return errors.New("import requires a CSV file path: fletnix import <path>")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("importing catalog",
		slog.String("path", path),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	imp := importer.NewImporter(repository.NewPostgresShowRepo(db), security.NewTextSanitizer())
	summary, err := imp.Import(ctx, f)
	if summary != nil {
		slog.Info("catalog import finished",
			slog.Int("total", summary.Total),
			slog.Int("imported", summary.Imported),
			slog.Int("updated", summary.Updated),
			slog.Int("skipped", summary.Skipped),
		)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

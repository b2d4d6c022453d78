package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/usermanager/internal/client"
	"github.com/hitoshi/usermanager/internal/config"
	"github.com/hitoshi/usermanager/internal/database"
	"github.com/hitoshi/usermanager/internal/handler"
	"github.com/hitoshi/usermanager/internal/logger"
	"github.com/hitoshi/usermanager/internal/metrics"
	"github.com/hitoshi/usermanager/internal/repository"
	"github.com/hitoshi/usermanager/internal/ui"
	"github.com/hitoshi/usermanager/internal/user"
	"github.com/hitoshi/usermanager/internal/userlist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/text/language"
)

const shutdownTimeout = 30 * time.Second

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

	// 3. LOG_LEVELでロガーを作り直す
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	switch cmd {
	case CommandHealthcheck:
		// 軽量サブコマンドのため、フル初期化をスキップする
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "5000"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	case CommandUI:
		// 画面がstdoutを使うため、ログはstderrに出す
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runUI(ctx, config.LoadClient(), os.Stdin, os.Stdout, os.Stderr)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// store はserveで使うレコードストアの実装と、SQLバックエンドの場合はその接続を保持する。
type store struct {
	backend database.Backend
	db      *sql.DB
	repo    repository.UserRepository

	// 設定されていれば到達性確認にrepoの代わりに使う
	pinger database.Pinger
}

// openStore は接続文字列のスキームに応じたリポジトリを生成する。
// 接続の確認は行わない。
func openStore(databaseURL string) (*store, error) {
	backend, dsn, err := database.ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	if backend == database.BackendMemory {
		return &store{backend: backend, repo: repository.NewMemoryUserRepo()}, nil
	}

	db, err := database.Open(backend, dsn)
	if err != nil {
		return nil, err
	}

	s := &store{backend: backend, db: db}
	switch backend {
	case database.BackendSQLite:
		s.repo = repository.NewSQLiteUserRepo(db)
	default:
		s.repo = repository.NewPostgresUserRepo(db)
	}
	return s, nil
}

func (s *store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *store) Ping(ctx context.Context) error {
	if s.pinger != nil {
		return s.pinger.Ping(ctx)
	}
	return s.repo.Ping(ctx)
}

// prepare はストアに到達できるまで待ち、AUTO_MIGRATEが有効ならマイグレーションを適用する。
// 到達できない場合はエラーにせず起動を続け、ctxが終わるまでバックグラウンドで再試行する。
// 返すチャネルはストアの準備が整った時点でcloseされる。
func (s *store) prepare(ctx context.Context, cfg *config.Config) (<-chan struct{}, error) {
	ready := make(chan struct{})

	if err := database.PingWithBackoff(ctx, s, cfg.StoreConnectTimeout); err != nil {
		slog.Error("record store unreachable, serving without it",
			slog.String("backend", string(s.backend)),
			slog.String("error", err.Error()),
		)
		go func() {
			err := database.RetryUntilReady(ctx, func() error {
				if err := s.Ping(ctx); err != nil {
					return err
				}
				return s.migrate(cfg)
			})
			if err != nil {
				return
			}
			close(ready)
		}()
		return ready, nil
	}

	if err := s.migrate(cfg); err != nil {
		return nil, err
	}
	close(ready)
	return ready, nil
}

// migrate は接続確立をログに残し、AUTO_MIGRATEが有効ならマイグレーションを適用する。
func (s *store) migrate(cfg *config.Config) error {
	slog.Info("record store connection established",
		slog.String("backend", string(s.backend)),
	)

	if !cfg.AutoMigrate {
		return nil
	}
	if err := database.Migrate(s.backend, cfg.DatabaseURL, s.db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// newHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// ストア操作とHTTPリクエストのメトリクスはregに登録される。
func newHandler(cfg *config.Config, repo repository.UserRepository, reg *prometheus.Registry) http.Handler {
	collector := metrics.NewCollector(reg)
	instrumented := repository.NewInstrumentedUserRepo(repo, collector)

	return handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
		HTTPRecorder:      collector,
		MetricsGatherer:   reg,
		UserService:       user.NewService(instrumented),
		StorePinger:       instrumented,
	})
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return serve(ctx, cfg, ln)
}

// serve はlnでHTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	// 1. レコードストア
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer st.Close()

	// ストアの復帰待ちはサーバーの終了とともに止める
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := st.prepare(ctx, cfg); err != nil {
		ln.Close()
		return err
	}

	// 2. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Handler:      newHandler(cfg, st.repo, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", ln.Addr().String()),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はレコードストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// runUI はAPIクライアントと一覧画面を組み立て、inのコマンドでoutに描画する。
// ログはlogwに出力する。
func runUI(ctx context.Context, cfg *config.ClientConfig, in io.Reader, out, logw io.Writer) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log := logger.Setup(logw, level)

	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		return fmt.Errorf("invalid UI_LOCALE %q: %w", cfg.Locale, err)
	}

	c, err := client.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout}, log)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	return ui.Run(ctx, in, out, userlist.New(c, locale, log))
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

// Package app はCLIアプリケーションの起動と各コマンドの実行を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/appraise/internal/api"
	"github.com/hitoshi/appraise/internal/config"
	"github.com/hitoshi/appraise/internal/logger"
	"github.com/hitoshi/appraise/internal/metrics"
	"github.com/hitoshi/appraise/internal/model"
	"github.com/hitoshi/appraise/internal/security"
	"github.com/hitoshi/appraise/internal/session"
)

// App は1回のコマンド実行に必要な依存をまとめたもの。
// APIクライアントは明示的に生成して渡す（グローバルシングルトンにしない）。
type App struct {
	out       io.Writer
	cfg       *config.Config
	client    *api.Client
	manager   *session.Manager
	sanitizer *security.TextSanitizer
}

// Init はアプリケーションの初期化を行う。
// ログをセットアップし、環境変数（と.env）からConfigを読み込む。
func Init() (*config.Config, error) {
	// 標準出力はコマンド結果用のため、ログは標準エラーに出す
	logger.SetupDefault(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するコマンドを実行する。
// argsにはos.Args[1:]を渡す。
func Run(out io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)
	if cmd == CommandHelp {
		printUsage(out)
		return nil
	}

	cfg, err := Init()
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// METRICS_ADDRが設定されている場合のみ、コマンド実行中メトリクスを公開する
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("メトリクスサーバーの起動に失敗しました",
					slog.String("addr", cfg.MetricsAddr),
					slog.String("error", err.Error()),
				)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	client := api.NewClient(api.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimitRPS,
		RateBurst: cfg.RateLimitBurst,
		Transport: collector.InstrumentTransport(nil),
	}, slog.Default())

	store := session.NewFileStore(cfg.CredentialsFile)
	manager := session.NewManager(client, store, slog.Default())

	// 起動時の復元遷移。認証状態に依存するコマンドはこの完了後に実行される。
	manager.Load()

	a := &App{
		out:       out,
		cfg:       cfg,
		client:    client,
		manager:   manager,
		sanitizer: security.NewTextSanitizer(),
	}

	switch cmd {
	case CommandLogin:
		return a.runLogin(ctx)
	case CommandLogout:
		return a.runLogout()
	case CommandWhoami:
		return a.runWhoami()
	case CommandRefresh:
		return a.runRefresh(ctx)
	case CommandAppraisers:
		return a.runAppraisers(ctx)
	case CommandOrders:
		return a.runOrders(ctx, rest)
	case CommandOrder:
		return a.runOrder(ctx, rest)
	case CommandReport:
		return a.runReport(ctx, rest)
	default:
		printUsage(out)
		return nil
	}
}

// requireUser はログイン済みであることを確認し、現在のユーザーを返す。
func (a *App) requireUser() (*model.User, error) {
	user := a.manager.CurrentUser()
	if user == nil {
		return nil, model.NewAuthFailedError("ログインしていません。先に `appraise login` を実行してください")
	}
	return user, nil
}

// printUsage は使い方を出力する。
func printUsage(out io.Writer) {
	fmt.Fprint(out, `appraise - 車両査定サービスのCLIクライアント

Usage:
  appraise <command> [options]

Commands:
  login                             Googleアカウントでログインする
  logout                            サインアウトする
  whoami                            現在のユーザーを表示する
  refresh                           ユーザー情報を再取得する
  appraisers                        査定士許可リストを表示する
  orders [--user] [--appraiser] [--page] [--size] [--all]
                                    査定依頼の一覧を表示する
  order create --make --model --year --location
                                    査定依頼を作成する
  order get --id                    査定依頼を表示する
  order assign --id --appraiser     査定依頼に査定士を割り当てる
  order status --id --status        査定依頼のステータスを更新する
  report upload --order --file [--description]
                                    査定レポートをアップロードする
  report get --order                査定レポートを表示する
  report download --order [--out]   査定レポートのPDFをダウンロードする
  help                              この使い方を表示する
`)
}

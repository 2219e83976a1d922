package cmd

import (
	"fmt"
	"log"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shouni/go-sitemap-watch/pkg/config"
	"github.com/shouni/go-sitemap-watch/pkg/fetcher"
	"github.com/shouni/go-sitemap-watch/pkg/logger"
)

const appName = "sitemap-watch"

// AppFlags は設定の読み込み前に必要な永続フラグを保持
// それ以外のフラグの値は bindFlags で viper に渡し、globalConfig から参照します。
type AppFlags struct {
	ConfigFile string // --config 設定ファイル
}

var Flags AppFlags

// PersistentPreRunE で初期化され、各サブコマンドから参照される共有オブジェクト
var (
	globalConfig  *config.Config
	globalLogger  logger.Logger = logger.NewNop()
	globalFetcher *fetcher.Client
)

// フラグ名と設定キーの対応。値が指定されたフラグだけが設定ファイルと環境変数より優先されます。
var flagBindings = map[string]string{
	"timeout":      "http.timeout",
	"max-retries":  "http.max_retries",
	"log-level":    "log.level",
	"url":          "monitor.url",
	"interval":     "monitor.interval",
	"namespace":    "monitor.namespace",
	"context":      "monitor.context_lines",
	"work-dir":     "monitor.work_dir",
	"metrics-addr": "metrics.addr",
}

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigFile, "config", "", "設定ファイルのパス (省略時は ./sitemapwatch.yaml を探索)")
	rootCmd.PersistentFlags().Int("timeout", config.DefaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().Uint64("max-retries", config.DefaultMaxRetries, "HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().String("log-level", logger.DefaultLevel, "ログレベル (debug, info, warn, error)")
}

// bindFlags は cmd で定義されているフラグだけを viper にバインドします。
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("フラグ %s のバインドに失敗しました: %w", name, err)
		}
	}
	return nil
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	v := config.NewViper()
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	cfg, err := config.Load(v, Flags.ConfigFile)
	if err != nil {
		return err
	}
	if clibase.Flags.Verbose {
		cfg.Log.Level = "debug"
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		// ロガーが作れない場合は標準の log で知らせる
		log.Printf("ロガーの初期化に失敗しました: %v", err)
		return err
	}

	l.Debug("HTTPクライアントを設定しました",
		logger.Duration("timeout", cfg.HTTPTimeout()),
		logger.Int("max_retries", int(cfg.HTTP.MaxRetries)),
	)

	opts := []fetcher.ClientOption{fetcher.WithMaxRetries(cfg.HTTP.MaxRetries)}
	if cfg.HTTP.UserAgent != "" {
		opts = append(opts, fetcher.WithUserAgent(cfg.HTTP.UserAgent))
	}

	globalConfig = cfg
	globalLogger = l
	globalFetcher = fetcher.New(cfg.HTTPTimeout(), opts...)
	return nil
}

// syncLogger はバッファ済みのログを書き出します。
// clibase.Execute はエラー時に os.Exit するため、各サブコマンドの RunE で defer して呼び出します。
func syncLogger() {
	_ = globalLogger.Sync()
}

// Execute は、rootCmd を実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		watchCmd,
		listCmd,
	)
}

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-sitemap-watch/internal/pipeline"
	"github.com/shouni/go-sitemap-watch/pkg/artifact"
	"github.com/shouni/go-sitemap-watch/pkg/config"
	"github.com/shouni/go-sitemap-watch/pkg/logger"
	"github.com/shouni/go-sitemap-watch/pkg/metrics"
	"github.com/shouni/go-sitemap-watch/pkg/monitor"
)

const metricsShutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "サイトマップを定期的に取得し、URLの追加・削除を差分で表示します",
	Long: `指定された gzip 圧縮サイトマップ (sitemap.xml.gz) を一定間隔で取得・展開・解析し、
直前に取得した <loc> の一覧との差分を unified diff 形式で標準出力に表示します。
取得・展開・解析に失敗したサイクルはスキップされ、次のサイクルで再試行します。`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("url", "u", "", "監視対象のサイトマップURL (省略時は標準入力から読み込み)")
	watchCmd.Flags().IntP("interval", "i", config.DefaultIntervalSec, "取得間隔（秒）")
	watchCmd.Flags().String("namespace", "auto", "<loc> の名前空間モード (auto, standard, image, any)")
	watchCmd.Flags().IntP("context", "C", config.DefaultContextLines, "差分のコンテキスト行数")
	watchCmd.Flags().String("work-dir", "", "取得・展開したサイトマップを保存するディレクトリ")
	watchCmd.Flags().String("metrics-addr", "", "Prometheus メトリクスを公開するアドレス (例: :9090)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer syncLogger()

	cfg := globalConfig
	if cfg == nil || globalFetcher == nil {
		return fmt.Errorf("HTTPクライアントが初期化されていません。rootコマンドのPreRunを確認してください")
	}

	targetURL, err := resolveURL(cfg.Monitor.URL, os.Stdin, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := globalLogger.With(logger.String("url", targetURL))

	pipeOpts := []pipeline.Option{
		pipeline.WithNamespace(cfg.NamespaceMode()),
		pipeline.WithLogger(log),
	}
	if cfg.Monitor.WorkDir != "" {
		pipeOpts = append(pipeOpts, pipeline.WithArtifacts(artifact.NewStore(cfg.Monitor.WorkDir)))
		log.Info("取得したサイトマップを保存します", logger.String("work_dir", cfg.Monitor.WorkDir))
	}
	p, err := pipeline.New(globalFetcher, pipeOpts...)
	if err != nil {
		return fmt.Errorf("パイプラインの初期化エラー: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monOpts := []monitor.Option{
		monitor.WithInterval(cfg.PollInterval()),
		monitor.WithContextLines(cfg.Monitor.ContextLines),
		monitor.WithOutput(cmd.OutOrStdout()),
		monitor.WithLogger(log),
	}
	if cfg.Metrics.Addr != "" {
		m := metrics.New(nil)
		monOpts = append(monOpts, monitor.WithMetrics(m))
		go serveMetrics(ctx, cfg.Metrics.Addr, m, log)
	}

	mon, err := monitor.New(targetURL, p, monOpts...)
	if err != nil {
		return fmt.Errorf("モニターの初期化エラー: %w", err)
	}

	err = mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("監視を終了しました")
		return nil
	}
	return err
}

// resolveURL は設定済みのURL、なければ標準入力から読み込んだURLにスキームを補完して返します。
func resolveURL(configured string, in io.Reader, prompt io.Writer) (string, error) {
	target := strings.TrimSpace(configured)
	if target == "" {
		fmt.Fprint(prompt, "監視するサイトマップのURLを入力してください: ")
		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("標準入力の読み取りエラー: %w", err)
			}
			return "", fmt.Errorf("URLが入力されていません")
		}
		target = strings.TrimSpace(scanner.Text())
		if target == "" {
			return "", fmt.Errorf("URLが入力されていません")
		}
	}

	processed, err := ensureScheme(target)
	if err != nil {
		return "", fmt.Errorf("URLスキームの処理エラー: %w", err)
	}
	return processed, nil
}

// serveMetrics は ctx が終了するまでメトリクスを HTTP で公開します。
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("メトリクスを公開します", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("メトリクスサーバーが停止しました", logger.Error(err))
	}
}

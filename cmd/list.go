package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-sitemap-watch/internal/pipeline"
	"github.com/shouni/go-sitemap-watch/pkg/sitemap"
)

// 全体タイムアウトはクライアントタイムアウトの2倍
const overallTimeoutFactor = 2

const defaultOverallTimeout = 60 * time.Second

// runListPipeline は1回分の 取得 → 展開 → 解析 を全体タイムアウト付きで実行します。
func runListPipeline(p *pipeline.Pipeline, url string, overallTimeout time.Duration) (sitemap.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
	defer cancel()

	snap, err := p.Run(ctx, url)
	if err != nil {
		return sitemap.Snapshot{}, fmt.Errorf("%s (URL: %s): %w", pipeline.Describe(err), url, err)
	}
	return snap, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "サイトマップを1回だけ取得し、<loc> のURLを一覧表示します",
	Long:  `指定された gzip 圧縮サイトマップを取得・展開・解析し、含まれるURLを出現順に表示します。監視は行いません。`,
	Args:  cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	defer syncLogger()

	cfg := globalConfig
	if cfg == nil || globalFetcher == nil {
		return fmt.Errorf("HTTPクライアントが初期化されていません。rootコマンドのPreRunを確認してください")
	}

	targetURL, err := resolveURL(cfg.Monitor.URL, os.Stdin, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	overallTimeout := cfg.HTTPTimeout() * time.Duration((cfg.HTTP.MaxRetries+1)*overallTimeoutFactor)
	if overallTimeout <= 0 {
		overallTimeout = defaultOverallTimeout
	}

	p, err := pipeline.New(globalFetcher,
		pipeline.WithNamespace(cfg.NamespaceMode()),
		pipeline.WithLogger(globalLogger),
	)
	if err != nil {
		return fmt.Errorf("パイプラインの初期化エラー: %w", err)
	}

	snap, err := runListPipeline(p, targetURL, overallTimeout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, u := range snap.URLs() {
		fmt.Fprintln(out, u)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "合計URL数: %d\n", snap.Len())
	return nil
}

func init() {
	listCmd.Flags().StringP("url", "u", "", "取得対象のサイトマップURL (省略時は標準入力から読み込み)")
	listCmd.Flags().String("namespace", "auto", "<loc> の名前空間モード (auto, standard, image, any)")
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shouni/go-sitemap-watch/pkg/decompress"
	"github.com/shouni/go-sitemap-watch/pkg/fetcher"
	"github.com/shouni/go-sitemap-watch/pkg/logger"
	"github.com/shouni/go-sitemap-watch/pkg/sitemap"
)

// Stage は処理段階の名前です。
type Stage string

const (
	StageNone       Stage = ""
	StageFetch      Stage = "fetch"
	StageDecompress Stage = "decompress"
	StageParse      Stage = "parse"
)

// Fetcher は URL から生のバイト列を取得するインターフェースです。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ArtifactSink は途中経過のバイト列を保存する先です。保存の失敗はサイクルを失敗させません。
type ArtifactSink interface {
	SaveCompressed(data []byte) error
	SaveExtracted(data []byte) error
}

// Pipeline は 取得 → 展開 → 解析 を1回分実行します。状態は持ちません。
type Pipeline struct {
	fetcher   Fetcher
	namespace sitemap.Namespace
	artifacts ArtifactSink
	log       logger.Logger
}

// Option は Pipeline の設定関数です。
type Option func(*Pipeline)

// WithNamespace は <loc> 抽出時の名前空間モードを設定します。
func WithNamespace(ns sitemap.Namespace) Option {
	return func(p *Pipeline) {
		p.namespace = ns
	}
}

// WithArtifacts は途中経過の保存先を設定します。
func WithArtifacts(sink ArtifactSink) Option {
	return func(p *Pipeline) {
		p.artifacts = sink
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New は Pipeline を初期化します。
func New(f Fetcher, opts ...Option) (*Pipeline, error) {
	if f == nil {
		return nil, errors.New("Fetcher cannot be nil")
	}
	p := &Pipeline{
		fetcher:   f,
		namespace: sitemap.NamespaceAuto,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run はサイトマップを取得してスナップショットを返します。
// エラーは *fetcher.FetchError, *decompress.DecompressError, *sitemap.ParseError のいずれかを含み、
// StageOf で失敗した段階を判別できます。
func (p *Pipeline) Run(ctx context.Context, url string) (sitemap.Snapshot, error) {
	compressed, err := p.fetcher.FetchBytes(ctx, url)
	if err != nil {
		var fe *fetcher.FetchError
		if !errors.As(err, &fe) {
			err = &fetcher.FetchError{URL: url, Err: err}
		}
		return sitemap.Snapshot{}, err
	}
	p.save(StageFetch, compressed)

	raw, err := decompress.Gunzip(compressed)
	if err != nil {
		return sitemap.Snapshot{}, err
	}
	p.save(StageDecompress, raw)

	snap, err := sitemap.Parse(raw, p.namespace)
	if err != nil {
		return sitemap.Snapshot{}, err
	}
	return snap, nil
}

// save は stage の出力を保存します。fetch は圧縮データ、decompress は展開後のXMLです。
func (p *Pipeline) save(stage Stage, data []byte) {
	if p.artifacts == nil {
		return
	}
	var err error
	if stage == StageFetch {
		err = p.artifacts.SaveCompressed(data)
	} else {
		err = p.artifacts.SaveExtracted(data)
	}
	if err != nil {
		p.log.Warn("中間ファイルの保存に失敗しました", logger.String("stage", string(stage)), logger.Error(err))
	}
}

// StageOf はエラーがどの段階で発生したかを返します。分類できない場合は StageNone です。
func StageOf(err error) Stage {
	var (
		fe *fetcher.FetchError
		de *decompress.DecompressError
		pe *sitemap.ParseError
	)
	switch {
	case err == nil:
		return StageNone
	case errors.As(err, &fe):
		return StageFetch
	case errors.As(err, &de):
		return StageDecompress
	case errors.As(err, &pe):
		return StageParse
	default:
		return StageNone
	}
}

// Describe はエラーを「どの段階で、なぜ」失敗したかの一行に整形します。
func Describe(err error) string {
	stage := StageOf(err)
	if stage == StageNone {
		return fmt.Sprintf("処理に失敗しました: %v", err)
	}
	return fmt.Sprintf("%s 段階で失敗しました: %v", stage, err)
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-sitemap-watch/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second
	// sitemaps.org が定める非圧縮サイトマップの上限 (50MiB) を、取得バイト数の上限にも流用する
	DefaultMaxBodySize = int64(50 * 1024 * 1024)

	DefaultUserAgent = "go-sitemap-watch/1.0 (+https://github.com/shouni/go-sitemap-watch)"

	// エラーメッセージに含めるボディの最大長
	maxErrorBodyLen = 1024
)

// ErrBodyTooLarge は、レスポンスボディが上限サイズを超えたことを示します。
var ErrBodyTooLarge = errors.New("レスポンスボディが最大サイズを超えました")

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError はサイトマップ取得の失敗を表します。
// StatusCode はHTTPステータスを受信できなかった場合 (ネットワークエラー等) は 0 です。
type FetchError struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("サイトマップの取得に失敗しました (URL: %s): ステータスコード %d", e.URL, e.StatusCode)
		if body := truncateBody(e.Body); body != "" {
			msg += ", ボディ: " + body
		}
		return msg
	}
	return fmt.Sprintf("サイトマップの取得に失敗しました (URL: %s): %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable は、このエラーがリトライで回復しうるかどうかを返します。
// 4xx は非リトライ対象、5xx とステータス未受信のエラーはリトライ対象です。
func (e *FetchError) Retryable() bool {
	if errors.Is(e.Err, ErrBodyTooLarge) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen] + "..."
	}
	return s
}

// Client はHTTP GETと指数バックオフを用いたリトライロジックを管理します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	userAgent   string
	maxBodySize int64
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// WithRetryConfig はリトライ設定全体を差し替えます。
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithUserAgent は User-Agent ヘッダーを設定します。
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize はレスポンスボディの最大読み込みサイズを設定します。
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// New は新しいClientを初期化します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry.DefaultConfig(),
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FetchBytes は URL からサイトマップを取得し、レスポンスボディを加工せずに返します。
// 失敗時のエラーは必ず *FetchError を含みます。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		var fetchErr error
		body, fetchErr = c.doFetch(ctx, url)
		return fetchErr
	}

	err := retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("URL(%s)のフェッチ", url),
		op,
		isRetryableError,
	)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		// コンテキスト切れ等、一度も FetchError に到達しなかった場合
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// doFetch は実際の一度のHTTP GETリクエストを実行します。
func (c *Client) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	// 明示的に指定し、トランスポートによる透過的な gzip 展開を抑止する
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen+1))
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       errBody,
			Err:        fmt.Errorf("HTTPステータスコードエラー: %d", resp.StatusCode),
		}
	}

	body, err := readLimited(resp.Body, c.maxBodySize)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// readLimited は最大 limit バイトまで読み込み、超過した場合は ErrBodyTooLarge を返します。
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%dバイト)", ErrBodyTooLarge, limit)
	}
	return data, nil
}

// isRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return true
}

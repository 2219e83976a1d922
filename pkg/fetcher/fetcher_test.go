package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-sitemap-watch/pkg/retry"
)

// MockHTTPClient は Doer インターフェースを満たすモックです。
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if args.Get(0) != nil {
		return args.Get(0).(*http.Response), err
	}
	return nil, err
}

// テスト用の高速なリトライ設定
var fastRetry = retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
		assert.Equal(t, DefaultUserAgent, client.userAgent)
		assert.Equal(t, DefaultMaxBodySize, client.maxBodySize)
	})
	t.Run("custom options", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(10*time.Second,
			WithHTTPClient(mockClient),
			WithMaxRetries(5),
			WithUserAgent("test-agent"),
			WithMaxBodySize(128),
		)
		assert.Equal(t, mockClient, client.httpClient)
		assert.Equal(t, uint64(5), client.retryConfig.MaxRetries)
		assert.Equal(t, "test-agent", client.userAgent)
		assert.Equal(t, int64(128), client.maxBodySize)
	})
}

func TestFetchBytes_Server(t *testing.T) {
	payload := []byte{0x1f, 0x8b, 0x08, 0x00}

	var gotUA, gotAE string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAE = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/x-gzip")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	client := New(time.Second, WithRetryConfig(fastRetry))
	body, err := client.FetchBytes(context.Background(), ts.URL+"/sitemap.xml.gz")

	require.NoError(t, err)
	assert.Equal(t, payload, body)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "gzip", gotAE)
}

func TestFetchBytes_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"404 はリトライしない", http.StatusNotFound, 1},
		{"403 はリトライしない", http.StatusForbidden, 1},
		{"503 はリトライする", http.StatusServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, "nope", tt.status)
			}))
			defer ts.Close()

			client := New(time.Second, WithRetryConfig(fastRetry))
			body, err := client.FetchBytes(context.Background(), ts.URL)

			require.Error(t, err)
			assert.Nil(t, body)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestFetchBytes_RecoversAfterServerError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(time.Second, WithRetryConfig(fastRetry))
	body, err := client.FetchBytes(context.Background(), ts.URL)

	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchBytes_NetworkError(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(nil, errors.New("network error"))

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	body, err := client.FetchBytes(context.Background(), "https://example.com/sitemap.xml.gz")

	require.Error(t, err)
	assert.Nil(t, body)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, fe.StatusCode)
	assert.Contains(t, err.Error(), "network error")
	mockClient.AssertNumberOfCalls(t, "Do", 3)
}

func TestFetchBytes_BodyTooLarge(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusOK, strings.Repeat("a", 64)), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry), WithMaxBodySize(16))
	_, err := client.FetchBytes(context.Background(), "https://example.com/sitemap.xml.gz")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	mockClient.AssertExpectations(t)
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			"status with body",
			&FetchError{URL: "https://a.example/s.xml.gz", StatusCode: 404, Body: []byte("not found\n")},
			"サイトマップの取得に失敗しました (URL: https://a.example/s.xml.gz): ステータスコード 404, ボディ: not found",
		},
		{
			"status without body",
			&FetchError{URL: "https://a.example/s.xml.gz", StatusCode: 500},
			"サイトマップの取得に失敗しました (URL: https://a.example/s.xml.gz): ステータスコード 500",
		},
		{
			"transport error",
			&FetchError{URL: "https://a.example/s.xml.gz", Err: errors.New("dial tcp: refused")},
			"サイトマップの取得に失敗しました (URL: https://a.example/s.xml.gz): dial tcp: refused",
		},
		{
			"truncated body",
			&FetchError{URL: "u", StatusCode: 400, Body: []byte(strings.Repeat("a", 1025))},
			"サイトマップの取得に失敗しました (URL: u): ステータスコード 400, ボディ: " + strings.Repeat("a", 1024) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(&FetchError{StatusCode: 404}))
	assert.True(t, isRetryableError(&FetchError{StatusCode: 502}))
	assert.True(t, isRetryableError(&FetchError{Err: errors.New("reset")}))
	assert.False(t, isRetryableError(&FetchError{Err: ErrBodyTooLarge}))
}

// Package client はユーザー管理APIのHTTPクライアントを提供する。
// フロントエンド（userlist）からAPIを呼び出す際の唯一の経路となる。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/usermanager/internal/model"
)

const (
	usersPath = "/api/users"
	// maxErrorBodyBytes はエラーレスポンスとして読み取るボディの上限。
	maxErrorBodyBytes = 64 << 10
)

// StatusError はAPIが2xx以外のステータスを返したことを表す。
// レスポンスが統一エラーフォーマットの場合はAPIErrorにデコード結果が入る。
type StatusError struct {
	StatusCode int
	APIError   *model.APIError
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.APIError != nil {
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.APIError.Error())
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// Unwrap はerrors.AsでAPIErrorを取り出せるようにする。
func (e *StatusError) Unwrap() error {
	if e.APIError == nil {
		return nil
	}
	return e.APIError
}

// Client はユーザー管理APIのクライアント。
// 各メソッドはHTTPリクエストを1回だけ送信し、リトライは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL
}

// New はClientの新しいインスタンスを生成する。
// baseURLはAPIサーバーのオリジン（例: http://localhost:5000）。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("APIのベースURLのパースに失敗しました: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("APIのベースURLはhttpまたはhttpsである必要があります: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    u,
	}, nil
}

// ListUsers は全ユーザーを取得する。
// GET /api/users
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, usersPath, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// CreateUser はユーザーを作成し、IDが採番されたレコードを返す。
// POST /api/users
func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	var created model.User
	if err := c.do(ctx, http.MethodPost, usersPath, in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser は指定IDのユーザーの3フィールドを置き換える。
// PUT /api/users/{id}
func (c *Client) UpdateUser(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error) {
	var result model.UpdateResult
	if err := c.do(ctx, http.MethodPut, usersPath+"/"+url.PathEscape(id), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteUser は指定IDのユーザーを削除する。
// DELETE /api/users/{id}
func (c *Client) DeleteUser(ctx context.Context, id string) (*model.DeleteResult, error) {
	var result model.DeleteResult
	if err := c.do(ctx, http.MethodDelete, usersPath+"/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do はJSONリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	// pathはエスケープ済みのため文字列として連結する
	reqURL := c.baseURL.String() + path

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ユーザー管理APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var body errorResponseBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
			statusErr.APIError = &model.APIError{
				Code:     body.Code,
				Message:  body.Message,
				Category: body.Category,
				Action:   body.Action,
			}
		}
		c.logger.Warn("ユーザー管理APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: レスポンスボディが空です", method, path)
		}
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// errorResponseBody はAPIの統一エラーフォーマット。
type errorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	ErrCodeRequestBodyTooLarge = "REQUEST_BODY_TOO_LARGE"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrStoreUnavailable はレコードストアに接続できないことを表す。
// リポジトリ実装が接続系のエラーをこれでラップする。
var ErrStoreUnavailable = errors.New("record store unavailable")

// NewInvalidRequestBodyError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestBodyError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequestBody,
		Message:  fmt.Sprintf("リクエストボディを解釈できません: %s", reason),
		Category: "validation",
		Action:   "name、email、ageを含むJSONオブジェクトを送信してください。",
	}
}

// NewRequestBodyTooLargeError はリクエストボディが上限を超えた場合のエラーを生成する。
func NewRequestBodyTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeRequestBodyTooLarge,
		Message:  fmt.Sprintf("リクエストボディが上限（%dバイト）を超えています。", limit),
		Category: "validation",
		Action:   "ボディを小さくして再度送信してください。",
	}
}

// NewStoreUnavailableError はレコードストアに接続できない場合のエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "レコードストアに接続できません。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

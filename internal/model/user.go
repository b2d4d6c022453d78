// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// User は管理対象のユーザーレコードを表す。
// IDはレコードストアが作成時に採番する。
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   Age    `json:"age"`
}

// Input はUserの可変フィールドを取り出す。
func (u User) Input() UserInput {
	return UserInput{Name: u.Name, Email: u.Email, Age: u.Age}
}

// UserInput は作成・更新時に送られる3つの可変フィールド。
// 更新は常に3フィールドすべてを置き換える（部分更新なし）。
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   Age    `json:"age"`
}

// UpdateResult は更新操作の結果を表す。
// 該当IDが存在しない場合もエラーにはならずMatchedCountが0になる。
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult は削除操作の結果を表す。
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

var jsonNull = []byte("null")

// Age は年齢を表す。
// 受け取ったJSON値（数値・文字列・null等）を型変換せずにそのまま保持し、
// 書き出し時もそのまま返す。
type Age struct {
	raw json.RawMessage
}

// NewAge は数値の年齢を生成する。
func NewAge(n int) Age {
	return Age{raw: json.RawMessage(strconv.Itoa(n))}
}

// AgeFromInput はフォーム入力文字列からAgeを生成する。
// 空文字はnull、JSON数値として解釈できる文字列は数値、それ以外は文字列として保持する。
func AgeFromInput(s string) Age {
	s = strings.TrimSpace(s)
	if s == "" {
		return Age{}
	}
	if isJSONNumber(s) {
		return Age{raw: json.RawMessage(s)}
	}
	b, _ := json.Marshal(s)
	return Age{raw: b}
}

// isJSONNumber はsがJSONの数値リテラルかどうかを判定する。
// 先頭が '-' か数字の有効なJSONは数値に限られる。
func isJSONNumber(s string) bool {
	if s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return false
	}
	return json.Valid([]byte(s))
}

// IsZero は値が未設定（nullを含む）かどうかを返す。
func (a Age) IsZero() bool {
	return len(a.raw) == 0 || bytes.Equal(a.raw, jsonNull)
}

// IsNumber は値がJSON数値として保持されているかどうかを返す。
func (a Age) IsNumber() bool {
	return len(a.raw) > 0 && isJSONNumber(string(a.raw))
}

// String は表示用の文字列を返す。文字列値は引用符を外し、nullは空文字になる。
func (a Age) String() string {
	if a.IsZero() {
		return ""
	}
	if a.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(a.raw, &s); err == nil {
			return s
		}
	}
	return string(a.raw)
}

// Equal は保持しているJSON表現が一致するかどうかを返す。
func (a Age) Equal(b Age) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	return bytes.Equal(a.raw, b.raw)
}

// MarshalJSON は保持している値をそのまま書き出す。
func (a Age) MarshalJSON() ([]byte, error) {
	if len(a.raw) == 0 {
		return jsonNull, nil
	}
	return a.raw, nil
}

// UnmarshalJSON は受け取った値を検証せずにそのまま保持する。
func (a *Age) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		a.raw = nil
		return nil
	}
	a.raw = append(json.RawMessage(nil), b...)
	return nil
}

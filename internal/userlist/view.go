// Package userlist はユーザー一覧画面の状態と操作を提供する。
// 検索・ソート・作成・編集・削除を扱い、変更のたびに一覧全体を再取得する。
package userlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/usermanager/internal/model"
	"golang.org/x/text/language"
)

var (
	// ErrEditing は編集中にAddが呼ばれたことを表す。
	ErrEditing = errors.New("編集中は新規作成できません")
	// ErrNotEditing は編集対象がない状態でSaveが呼ばれたことを表す。
	ErrNotEditing = errors.New("編集中のレコードがありません")
)

// UserAPI は一覧画面が使用するユーザー管理APIのインターフェース。
// client.Clientが実装する。
type UserAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in model.UserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error)
	DeleteUser(ctx context.Context, id string) (*model.DeleteResult, error)
}

// Snapshot は描画用に取り出した画面状態。Rowsは導出済みの一覧。
type Snapshot struct {
	Rows      []model.User
	Total     int
	Search    string
	Order     SortOrder
	Form      Form
	Mode      Mode
	LastError error
}

// View は一覧画面の状態を保持する。複数goroutineから安全に使用できる。
// ネットワーク呼び出しの間はロックを保持しない。
type View struct {
	api    UserAPI
	logger *slog.Logger

	mu      sync.Mutex
	deriver *Deriver
	cache   []model.User
	search  string
	order   SortOrder
	form    Form
	mode    Mode
	lastErr error

	// 一覧取得のリクエストIDと、最後に反映したレスポンスのID
	issued  uint64
	applied uint64
}

// New はViewを生成する。localeは名前の並び替えと大文字小文字の判定に使用する。
func New(api UserAPI, locale language.Tag, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		api:     api,
		logger:  logger,
		deriver: NewDeriver(locale),
		cache:   []model.User{},
		mode:    Idle{},
	}
}

// Snapshot は現在の状態と導出済みの一覧を返す。
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return Snapshot{
		Rows:      v.deriver.Derive(v.cache, v.search, v.order),
		Total:     len(v.cache),
		Search:    v.search,
		Order:     v.order,
		Form:      v.form,
		Mode:      v.mode,
		LastError: v.lastErr,
	}
}

// Rows は導出済みの一覧を返す。
func (v *View) Rows() []model.User {
	return v.Snapshot().Rows
}

// Load は一覧を取得してキャッシュを置き換える。
func (v *View) Load(ctx context.Context) error {
	return v.fetch(ctx)
}

// Refresh はLoadと同じ。変更操作の後に呼ばれる。
func (v *View) Refresh(ctx context.Context) error {
	return v.fetch(ctx)
}

// fetch は一覧を取得する。自分より新しいリクエストの結果がすでに反映されていれば破棄する。
func (v *View) fetch(ctx context.Context) error {
	v.mu.Lock()
	v.issued++
	id := v.issued
	v.mu.Unlock()

	users, err := v.api.ListUsers(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if id < v.applied {
		v.logger.Debug("discarding stale user list response",
			slog.Uint64("request_id", id),
			slog.Uint64("applied_id", v.applied),
		)
		return nil
	}
	if err != nil {
		v.lastErr = fmt.Errorf("一覧の取得に失敗しました: %w", err)
		return v.lastErr
	}

	v.applied = id
	v.cache = users
	v.lastErr = nil
	return nil
}

// SetSearch は検索語を設定する。
func (v *View) SetSearch(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = s
}

// ToggleSort は並び順を反転する。
func (v *View) ToggleSort() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.order = v.order.Toggle()
}

// SetName はフォームの名前を設定する。
func (v *View) SetName(s string) {
	v.editForm(func(f *Form) { f.Name = s })
}

// SetEmail はフォームのメールアドレスを設定する。
func (v *View) SetEmail(s string) {
	v.editForm(func(f *Form) { f.Email = s })
}

// SetAge はフォームの年齢を設定する。
func (v *View) SetAge(s string) {
	v.editForm(func(f *Form) { f.Age = s })
}

// editForm はフォームを更新し、Idle/Creatingを入力内容に合わせて切り替える。
// Editingは維持する。
func (v *View) editForm(apply func(*Form)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	apply(&v.form)

	switch v.mode.(type) {
	case Idle:
		if !v.form.IsEmpty() {
			v.mode = Creating{}
		}
	case Creating:
		if v.form.IsEmpty() {
			v.mode = Idle{}
		}
	}
}

// BeginEdit はレコードをフォームに読み込み、編集モードにする。
func (v *View) BeginEdit(u model.User) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.form = formFromUser(u)
	v.mode = Editing{Target: u}
}

// Cancel はフォームと表示中のエラーをクリアしてIdleに戻す。ネットワーク呼び出しは行わない。
func (v *View) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resetLocked()
	v.lastErr = nil
}

func (v *View) resetLocked() {
	v.form = Form{}
	v.mode = Idle{}
}

// Add はフォームの内容でユーザーを作成し、成功したらフォームをクリアして一覧を再取得する。
// 編集中はErrEditingを返す。
func (v *View) Add(ctx context.Context) error {
	v.mu.Lock()
	if _, editing := IsEditing(v.mode); editing {
		v.lastErr = ErrEditing
		v.mu.Unlock()
		return ErrEditing
	}
	in := v.form.Input()
	v.mu.Unlock()

	if _, err := v.api.CreateUser(ctx, in); err != nil {
		return v.fail("ユーザーの作成に失敗しました", err)
	}

	v.mu.Lock()
	v.resetLocked()
	v.mu.Unlock()

	return v.fetch(ctx)
}

// Save は編集対象のレコードをフォームの内容で更新し、成功したらフォームをクリアして一覧を再取得する。
// 編集中でなければErrNotEditingを返す。
func (v *View) Save(ctx context.Context) error {
	v.mu.Lock()
	target, editing := IsEditing(v.mode)
	if !editing {
		v.lastErr = ErrNotEditing
		v.mu.Unlock()
		return ErrNotEditing
	}
	in := saveInput(target, v.form)
	v.mu.Unlock()

	if _, err := v.api.UpdateUser(ctx, target.ID, in); err != nil {
		return v.fail("ユーザーの更新に失敗しました", err)
	}

	v.mu.Lock()
	v.resetLocked()
	v.mu.Unlock()

	return v.fetch(ctx)
}

// Submit は編集中ならSave、それ以外ならAddを実行する。
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	_, editing := IsEditing(v.mode)
	v.mu.Unlock()

	if editing {
		return v.Save(ctx)
	}
	return v.Add(ctx)
}

// Remove は指定IDのユーザーを削除して一覧を再取得する。フォームは変更しない。
func (v *View) Remove(ctx context.Context, id string) error {
	if _, err := v.api.DeleteUser(ctx, id); err != nil {
		return v.fail("ユーザーの削除に失敗しました", err)
	}
	return v.fetch(ctx)
}

// fail は失敗した操作のエラーを記録して返す。状態はそれ以外変更しない。
func (v *View) fail(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)

	v.mu.Lock()
	v.lastErr = wrapped
	v.mu.Unlock()

	v.logger.Warn(msg, slog.String("error", err.Error()))
	return wrapped
}

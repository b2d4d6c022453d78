package userlist

import "github.com/hitoshi/usermanager/internal/model"

// Mode はフォームの状態を表すタグ付きバリアント。
// Idle、Creating、Editing のいずれかで、Submitの振る舞い（Add/Save）を決める。
type Mode interface {
	mode()
	String() string
}

// Idle はフォームが空で編集対象もない状態。
type Idle struct{}

// Creating は新規作成のためにフォームへ入力中の状態。
type Creating struct{}

// Editing は既存レコードをフォームに読み込んで編集中の状態。
type Editing struct {
	Target model.User
}

func (Idle) mode()     {}
func (Creating) mode() {}
func (Editing) mode()  {}

func (Idle) String() string     { return "idle" }
func (Creating) String() string { return "creating" }
func (Editing) String() string  { return "editing" }

// IsEditing はmが編集モードかどうかと、その編集対象を返す。
func IsEditing(m Mode) (model.User, bool) {
	e, ok := m.(Editing)
	return e.Target, ok
}

// Form はフォームの3フィールド。入力されたテキストをそのまま保持する。
type Form struct {
	Name  string
	Email string
	Age   string
}

// IsEmpty は全フィールドが空かどうかを返す。
func (f Form) IsEmpty() bool {
	return f.Name == "" && f.Email == "" && f.Age == ""
}

// Input はフォームの内容をAPIに送る入力値へ変換する。
func (f Form) Input() model.UserInput {
	return model.UserInput{
		Name:  f.Name,
		Email: f.Email,
		Age:   model.AgeFromInput(f.Age),
	}
}

func formFromUser(u model.User) Form {
	return Form{Name: u.Name, Email: u.Email, Age: u.Age.String()}
}

// saveInput は編集対象へ送る入力値を返す。
// 年齢欄が読み込んだときの表示のままなら、保存されていた値をそのまま送り返す。
func saveInput(target model.User, f Form) model.UserInput {
	in := f.Input()
	if f.Age == target.Age.String() {
		in.Age = target.Age
	}
	return in
}

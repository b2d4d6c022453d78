// Package ui はuserlist.Viewを操作する行指向のターミナルフロントエンドを提供する。
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hitoshi/usermanager/internal/model"
	"github.com/hitoshi/usermanager/internal/userlist"
)

const title = "User Management"

const helpText = `commands:
  list                 一覧を再表示する
  reload               一覧を再取得する
  search [term]        名前で絞り込む（引数なしで解除）
  sort                 並び順を切り替える
  name|email|age <v>   フォームに入力する
  add                  フォームの内容で作成する
  edit <n>             n番目のレコードを編集する
  save                 編集中のレコードを更新する
  submit               編集中ならsave、それ以外はadd
  cancel               フォームをクリアする
  rm <n>               n番目のレコードを削除する
  help                 このヘルプを表示する
  quit                 終了する
`

// errQuit はquitコマンドでループを抜けるために使う。
var errQuit = errors.New("quit")

// Run はinから1行ずつコマンドを読み、viewを操作してoutに画面を描画する。
// quitまたは入力の終端で正常終了する。
func Run(ctx context.Context, in io.Reader, out io.Writer, view *userlist.View) error {
	// 初回の取得失敗は画面のエラー表示に残る
	_ = view.Load(ctx)
	if err := Render(out, view.Snapshot()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("入力の読み込みに失敗しました: %w", err)
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := execute(ctx, out, view, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			if _, werr := fmt.Fprintln(out, err); werr != nil {
				return werr
			}
			continue
		}
		if err := Render(out, view.Snapshot()); err != nil {
			return err
		}
	}
}

// execute は1行のコマンドを実行する。
// 返すエラーはコマンドの書式エラーのみで、APIの失敗はviewのLastErrorに記録される。
func execute(ctx context.Context, out io.Writer, view *userlist.View, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "help", "?":
		if _, err := io.WriteString(out, helpText); err != nil {
			return err
		}
	case "list", "ls":
	case "reload":
		_ = view.Refresh(ctx)
	case "search":
		view.SetSearch(arg)
	case "sort":
		view.ToggleSort()
	case "name":
		view.SetName(arg)
	case "email":
		view.SetEmail(arg)
	case "age":
		view.SetAge(arg)
	case "add":
		_ = view.Add(ctx)
	case "save":
		_ = view.Save(ctx)
	case "submit":
		_ = view.Submit(ctx)
	case "cancel":
		view.Cancel()
	case "edit":
		u, err := rowAt(view, arg)
		if err != nil {
			return err
		}
		view.BeginEdit(u)
	case "rm", "delete":
		u, err := rowAt(view, arg)
		if err != nil {
			return err
		}
		_ = view.Remove(ctx, u.ID)
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s (type help)", cmd)
	}
	return nil
}

// rowAt は表示中の一覧から1始まりの番号でレコードを取り出す。
func rowAt(view *userlist.View, arg string) (model.User, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.User{}, fmt.Errorf("row number required: %q", arg)
	}
	rows := view.Rows()
	if n < 1 || n > len(rows) {
		return model.User{}, fmt.Errorf("no row %d (showing %d)", n, len(rows))
	}
	return rows[n-1], nil
}

// Render はスナップショットを描画する。
func Render(out io.Writer, s userlist.Snapshot) error {
	tw := tabwriter.NewWriter(out, 0, 4, 1, ' ', 0)

	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "Search by name: %s\t[%s]\n", s.Search, s.Order.ButtonLabel())

	button := "Add User"
	if _, editing := userlist.IsEditing(s.Mode); editing {
		button = "Update User"
	}
	fmt.Fprintf(tw, "Name: %s\tEmail: %s\tAge: %s\t[%s] (%s)\n",
		s.Form.Name, s.Form.Email, s.Form.Age, button, s.Mode)

	if s.LastError != nil {
		fmt.Fprintf(tw, "Error: %v\n", s.LastError)
	}

	if len(s.Rows) == 0 {
		if s.Total == 0 {
			fmt.Fprintln(tw, "(no users)")
		} else {
			fmt.Fprintf(tw, "(no users match %q)\n", s.Search)
		}
	}
	for i, u := range s.Rows {
		fmt.Fprintf(tw, "%d.\t%s - %s - %s years old\n", i+1, u.Name, u.Email, u.Age.String())
	}

	return tw.Flush()
}

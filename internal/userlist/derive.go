package userlist

import (
	"slices"
	"strings"

	"github.com/hitoshi/usermanager/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder は名前の並び順。
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Toggle は反対の並び順を返す。
func (o SortOrder) Toggle() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// String は並び順の名前を返す。
func (o SortOrder) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// ButtonLabel はソート切り替えボタンの表示ラベルを返す。
// 押したときに切り替わる先の並び順を表示する。
func (o SortOrder) ButtonLabel() string {
	if o == Ascending {
		return "Sort Descending"
	}
	return "Sort Ascending"
}

// Deriver はキャッシュから表示用の一覧を導出する。
// collate.Collatorはgoroutine安全ではないため、呼び出し側で排他すること。
type Deriver struct {
	tag      language.Tag
	collator *collate.Collator
}

// NewDeriver はロケールに応じた比較を行うDeriverを生成する。
func NewDeriver(tag language.Tag) *Deriver {
	return &Deriver{
		tag:      tag,
		collator: collate.New(tag),
	}
}

// Derive はusersを名前で安定ソートしてから、searchを大文字小文字を区別せずに
// 部分一致で含むレコードに絞り込んだ新しいスライスを返す。usersは変更しない。
// 比較はcollatorのみで決まり、等しいキーは元の順序を保つ。
func (d *Deriver) Derive(users []model.User, search string, order SortOrder) []model.User {
	sorted := slices.Clone(users)
	slices.SortStableFunc(sorted, func(a, b model.User) int {
		if order == Descending {
			return d.collator.CompareString(b.Name, a.Name)
		}
		return d.collator.CompareString(a.Name, b.Name)
	})

	if search == "" {
		return sorted
	}

	lower := cases.Lower(d.tag)
	needle := lower.String(search)
	out := sorted[:0]
	for _, u := range sorted {
		if strings.Contains(lower.String(u.Name), needle) {
			out = append(out, u)
		}
	}
	return out
}

// Matches はnameがsearchを大文字小文字を区別せずに含むかどうかを返す。
func (d *Deriver) Matches(name, search string) bool {
	lower := cases.Lower(d.tag)
	return strings.Contains(lower.String(name), lower.String(search))
}

// Compare はcollatorでa、bの名前を比較する。
func (d *Deriver) Compare(a, b string) int {
	return d.collator.CompareString(a, b)
}

package repository

import (
	"context"
	"testing"

	"github.com/hitoshi/usermanager/internal/model"
)

// runUserRepositoryContract は全バックエンド共通の振る舞いを検証する。
// newRepo は空のストアを持つリポジトリを返すこと。
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	t.Helper()

	t.Run("List_EmptyStore_ReturnsEmptyNonNil", func(t *testing.T) {
		repo := newRepo(t)
		users, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if users == nil {
			t.Fatal("expected non-nil slice")
		}
		if len(users) != 0 {
			t.Errorf("len(users) = %d, want 0", len(users))
		}
	})

	t.Run("Create_AssignsIDAndEchoesFields", func(t *testing.T) {
		repo := newRepo(t)
		in := model.UserInput{Name: "Ann", Email: "a@x.io", Age: model.NewAge(30)}

		created, err := repo.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected generated ID")
		}
		if created.Name != "Ann" || created.Email != "a@x.io" || !created.Age.Equal(model.NewAge(30)) {
			t.Errorf("created = %+v, want Ann/a@x.io/30", created)
		}
	})

	t.Run("List_PreservesInsertionOrder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		names := []string{"Zed", "Ann", "Bob"}
		for _, n := range names {
			if _, err := repo.Create(ctx, model.UserInput{Name: n}); err != nil {
				t.Fatalf("Create(%s) returned error: %v", n, err)
			}
		}

		users, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(users) != len(names) {
			t.Fatalf("len(users) = %d, want %d", len(users), len(names))
		}
		for i, n := range names {
			if users[i].Name != n {
				t.Errorf("users[%d].Name = %q, want %q", i, users[i].Name, n)
			}
		}
	})

	t.Run("Create_IDsAreUnique", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			u, err := repo.Create(ctx, model.UserInput{Name: "dup"})
			if err != nil {
				t.Fatalf("Create returned error: %v", err)
			}
			if seen[u.ID] {
				t.Fatalf("duplicate ID %s", u.ID)
			}
			seen[u.ID] = true
		}
	})

	t.Run("Create_PreservesNonNumericAge", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		if _, err := repo.Create(ctx, model.UserInput{Name: "Str", Age: model.AgeFromInput("abc")}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if _, err := repo.Create(ctx, model.UserInput{Name: "Nil"}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		users, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if users[0].Age.String() != "abc" || users[0].Age.IsNumber() {
			t.Errorf("users[0].Age = %q (number=%v), want string abc", users[0].Age.String(), users[0].Age.IsNumber())
		}
		if !users[1].Age.IsZero() {
			t.Errorf("users[1].Age should be empty, got %q", users[1].Age.String())
		}
	})

	t.Run("Update_ReplacesFieldsAndKeepsPosition", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first, _ := repo.Create(ctx, model.UserInput{Name: "Ann", Email: "a@x.io", Age: model.NewAge(30)})
		if _, err := repo.Create(ctx, model.UserInput{Name: "Bob"}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		result, err := repo.Update(ctx, first.ID, model.UserInput{Name: "Ann B", Email: "ab@x.io", Age: model.NewAge(31)})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if !result.Acknowledged || result.MatchedCount != 1 {
			t.Errorf("result = %+v, want acknowledged with MatchedCount=1", result)
		}

		users, _ := repo.List(ctx)
		if users[0].ID != first.ID {
			t.Fatalf("updated record moved: users[0].ID = %s, want %s", users[0].ID, first.ID)
		}
		if users[0].Name != "Ann B" || users[0].Email != "ab@x.io" || !users[0].Age.Equal(model.NewAge(31)) {
			t.Errorf("users[0] = %+v, want Ann B/ab@x.io/31", users[0])
		}
	})

	t.Run("Update_UnknownID_MatchesNothing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		if _, err := repo.Create(ctx, model.UserInput{Name: "Ann"}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		result, err := repo.Update(ctx, "no-such-id", model.UserInput{Name: "X"})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if result.MatchedCount != 0 || result.ModifiedCount != 0 {
			t.Errorf("result = %+v, want zero counts", result)
		}

		users, _ := repo.List(ctx)
		if len(users) != 1 || users[0].Name != "Ann" {
			t.Errorf("store changed unexpectedly: %+v", users)
		}
	})

	t.Run("Delete_RemovesOnlyTarget", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		a, _ := repo.Create(ctx, model.UserInput{Name: "Ann"})
		b, _ := repo.Create(ctx, model.UserInput{Name: "Bob"})

		result, err := repo.Delete(ctx, a.ID)
		if err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if !result.Acknowledged || result.DeletedCount != 1 {
			t.Errorf("result = %+v, want acknowledged with DeletedCount=1", result)
		}

		users, _ := repo.List(ctx)
		if len(users) != 1 || users[0].ID != b.ID {
			t.Errorf("users = %+v, want only Bob", users)
		}
	})

	t.Run("Delete_UnknownID_DeletesNothing", func(t *testing.T) {
		repo := newRepo(t)
		result, err := repo.Delete(context.Background(), "no-such-id")
		if err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if result.DeletedCount != 0 {
			t.Errorf("DeletedCount = %d, want 0", result.DeletedCount)
		}
	})

	t.Run("Ping_Succeeds", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("Ping returned error: %v", err)
		}
	})
}

package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/task"
)

// createTestDB opens a migrated SQLite database in a temp dir
func createTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, repo *UserRepo, name, email string, role model.Role) model.User {
	t.Helper()
	u, err := repo.Create(context.Background(), model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func seedTask(t *testing.T, repo *TaskRepo, owner int64, name, due string) model.Task {
	t.Helper()
	d, err := model.ParseDate(due)
	if err != nil {
		t.Fatalf("parse due: %v", err)
	}
	created, err := repo.Create(context.Background(), model.Task{
		Name:       name,
		DueDate:    d,
		Priority:   1,
		PostedDate: model.NewDate(time.Date(2017, 11, 20, 0, 0, 0, 0, time.UTC)),
		Status:     model.StatusIncomplete,
		OwnerID:    owner,
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", name, err)
	}
	return created
}

func TestMigrate_Idempotent(t *testing.T) {
	db := createTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "dsn"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestUserRepo(t *testing.T) {
	db := createTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, repo, "Michael", "michael@example.org", "")
	if u.ID == 0 {
		t.Fatalf("expected id")
	}
	if u.Role != model.RoleUser {
		t.Fatalf("default role=%q", u.Role)
	}

	byName, err := repo.GetByName(ctx, "Michael")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName != u {
		t.Fatalf("got %+v want %+v", byName, u)
	}

	byID, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Email != "michael@example.org" {
		t.Fatalf("email=%q", byID.Email)
	}

	if _, err := repo.GetByName(ctx, "nobody"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}

	seedUser(t, repo, "Superman", "superman@example.org", model.RoleAdmin)
	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[1].Role != model.RoleAdmin {
		t.Fatalf("users=%+v", users)
	}
}

func TestUserRepo_Duplicate(t *testing.T) {
	db := createTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	seedUser(t, repo, "Michael", "michael@example.org", model.RoleUser)

	tests := []struct {
		name  string
		user  string
		email string
	}{
		{"same name and email", "Michael", "michael@example.org"},
		{"same name", "Michael", "other@example.org"},
		{"same email", "Michael2", "michael@example.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, model.User{Name: tt.user, Email: tt.email, PasswordHash: "x", Role: model.RoleUser})
			if !errors.Is(err, model.ErrDuplicateIdentity) {
				t.Fatalf("err=%v want ErrDuplicateIdentity", err)
			}
		})
	}

	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
}

func TestTaskRepo_CreateGetList(t *testing.T) {
	db := createTestDB(t)
	users := NewUserRepo(db)
	repo := NewTaskRepo(db)
	ctx := context.Background()

	michael := seedUser(t, users, "Michael", "michael@example.org", model.RoleUser)
	other := seedUser(t, users, "Michael2", "michael2@example.org", model.RoleUser)

	bank := seedTask(t, repo, michael.ID, "Go to the bank", "2016-08-10")
	seedTask(t, repo, other.ID, "Walk the dog", "2016-08-11")

	got, err := repo.Get(ctx, bank.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Go to the bank" || got.OwnerID != michael.ID || got.Status != model.StatusIncomplete {
		t.Fatalf("task=%+v", got)
	}
	if got.DueDate.String() != "2016-08-10" || got.PostedDate.String() != "2017-11-20" {
		t.Fatalf("dates due=%s posted=%s", got.DueDate, got.PostedDate)
	}

	mine, err := repo.List(ctx, task.ListFilter{OwnerID: michael.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != bank.ID {
		t.Fatalf("owner filter broken: %+v", mine)
	}

	all, err := repo.List(ctx, task.ListFilter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}

	if _, err := repo.Get(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestTaskRepo_UpdateStatus(t *testing.T) {
	db := createTestDB(t)
	owner := seedUser(t, NewUserRepo(db), "Michael", "michael@example.org", model.RoleUser)
	repo := NewTaskRepo(db)
	ctx := context.Background()
	created := seedTask(t, repo, owner.ID, "Go to the bank", "2016-08-10")

	var seen model.Task
	updated, err := repo.UpdateStatus(ctx, created.ID, func(t model.Task) error {
		seen = t
		return nil
	}, model.StatusComplete)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if seen.ID != created.ID {
		t.Fatalf("authorize saw %+v", seen)
	}
	if updated.Status != model.StatusComplete {
		t.Fatalf("status=%q", updated.Status)
	}

	reloaded, _ := repo.Get(ctx, created.ID)
	if reloaded.Status != model.StatusComplete {
		t.Fatalf("status not persisted: %q", reloaded.Status)
	}
}

func TestTaskRepo_AuthorizeRejectionLeavesRow(t *testing.T) {
	db := createTestDB(t)
	owner := seedUser(t, NewUserRepo(db), "Michael", "michael@example.org", model.RoleUser)
	repo := NewTaskRepo(db)
	ctx := context.Background()
	created := seedTask(t, repo, owner.ID, "Go to the bank", "2016-08-10")

	deny := func(model.Task) error { return model.ErrForbidden }

	if _, err := repo.UpdateStatus(ctx, created.ID, deny, model.StatusComplete); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("update err=%v want ErrForbidden", err)
	}
	if err := repo.Delete(ctx, created.ID, deny); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("delete err=%v want ErrForbidden", err)
	}

	after, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("task should still exist: %v", err)
	}
	if after.Status != model.StatusIncomplete {
		t.Fatalf("status changed to %q", after.Status)
	}
}

func TestTaskRepo_Delete(t *testing.T) {
	db := createTestDB(t)
	owner := seedUser(t, NewUserRepo(db), "Michael", "michael@example.org", model.RoleUser)
	repo := NewTaskRepo(db)
	ctx := context.Background()
	created := seedTask(t, repo, owner.ID, "Go to the bank", "2016-08-10")

	if err := repo.Delete(ctx, created.ID, nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, created.ID, nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second delete err=%v want ErrNotFound", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{d: dialects[DriverPostgres]}
	if got := pg.rebind("SELECT * FROM tasks WHERE id = ? AND owner_id = ?"); got != "SELECT * FROM tasks WHERE id = $1 AND owner_id = $2" {
		t.Fatalf("rebind=%q", got)
	}

	my := &DB{d: dialects[DriverMySQL]}
	if got := my.rebind("WHERE id = ?"); got != "WHERE id = ?" {
		t.Fatalf("mysql query must be unchanged, got %q", got)
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN(dialects[DriverMySQL], "taskr:pw@tcp(localhost:3306)/taskr")
	if err != nil {
		t.Fatalf("mysql: %v", err)
	}
	if want := "parseTime=true"; !strings.Contains(got, want) {
		t.Fatalf("mysql dsn %q missing %q", got, want)
	}

	got, err = normalizeDSN(dialects[DriverSQLite], "file:taskr.db?cache=shared")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	for _, want := range []string{"cache=shared", "&_txlock=immediate", "&_foreign_keys=on"} {
		if !strings.Contains(got, want) {
			t.Fatalf("sqlite dsn %q missing %q", got, want)
		}
	}

	if _, err := normalizeDSN(dialects[DriverMySQL], "not a dsn"); err == nil {
		t.Fatalf("expected error for malformed mysql dsn")
	}
}

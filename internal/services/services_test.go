package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// newServiceDB opens a private in-memory database with the full schema.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// mkUser inserts a user with the given balance and returns its id.
func mkUser(t *testing.T, db *gorm.DB, name string, balance int64) string {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@test.io", Password: "pw", Skillpoints: balance}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}

func balanceOfID(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	u, err := repo.GetUser(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u.Skillpoints
}

func available(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	b, err := NewUserService(db).Balance(context.Background(), id)
	if err != nil {
		t.Fatalf("balance %s: %v", id, err)
	}
	return b.Available
}

func requestStatus(t *testing.T, db *gorm.DB, id string) *domain.Request {
	t.Helper()
	r, err := repo.GetRequest(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get request %s: %v", id, err)
	}
	return r
}

func chatStatus(t *testing.T, db *gorm.DB, id string) domain.ChatStatus {
	t.Helper()
	c, err := repo.GetChat(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get chat %s: %v", id, err)
	}
	return c.Status
}

// openRequest creates a request by creator for sp skillpoints.
func openRequest(t *testing.T, s *RequestService, creator string, sp int64) *domain.Request {
	t.Helper()
	r, err := s.Create(context.Background(), CreateRequestInput{
		CreatorID: creator, Title: "Help", Subject: "math", Skillpoints: sp,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

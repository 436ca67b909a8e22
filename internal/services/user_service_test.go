package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-tutor-backend/internal/repo"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newServiceDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterInput{FirstName: " Ivan ", LastName: "Ivanov", Email: " Ivan@Test.RU ", Password: "123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ivan@test.ru" || u.Name != "Ivanov Ivan" || u.Skillpoints != 0 || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := s.Register(ctx, RegisterInput{Email: "IVAN@test.ru", Password: "x"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email: %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Email: "", Password: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank email: %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Email: "x@y.z"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank password: %v", err)
	}

	got, err := s.Login(ctx, "IVAN@test.ru", "123456")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Login = %+v, %v", got, err)
	}
	if _, err := s.Login(ctx, "ivan@test.ru", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := s.Login(ctx, "nobody@test.ru", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestUpdateProfile_RebuildsNameAndKeepsBalance(t *testing.T) {
	db := newServiceDB(t)
	s := NewUserService(db)
	ctx := context.Background()
	u, err := s.Register(ctx, RegisterInput{FirstName: "Anna", LastName: "Petrova", Email: "anna@test.ru", Password: "pwd"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := repo.SetSkillpoints(ctx, db, u.ID, 9); err != nil {
		t.Fatalf("SetSkillpoints: %v", err)
	}

	first, city := "Anya", "Kazan"
	got, err := s.UpdateProfile(ctx, u.ID, repo.ProfileUpdate{FirstName: &first, City: &city})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Petrova Anya" || got.City != "Kazan" || got.Skillpoints != 9 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if _, err := s.UpdateProfile(ctx, "missing", repo.ProfileUpdate{City: &city}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}

func TestBalance_ReportsReservation(t *testing.T) {
	db := newServiceDB(t)
	a := mkUser(t, db, "a", 10)
	reqs := NewRequestService(db)
	openRequest(t, reqs, a, 3)
	cancelled := openRequest(t, reqs, a, 4)
	if _, err := reqs.CreatorCancel(context.Background(), cancelled.ID, a); err != nil {
		t.Fatalf("CreatorCancel: %v", err)
	}

	b, err := NewUserService(db).Balance(context.Background(), a)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Balance != 10 || b.Reserved != 3 || b.Available != 7 || b.UserID != a {
		t.Fatalf("unexpected balance: %+v", b)
	}
	if _, err := NewUserService(db).Balance(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: %v", err)
	}
}

func TestNormalizeHelpers(t *testing.T) {
	for in, want := range map[string]string{
		"":                      "",
		"   leading   ":         "leading",
		"tabs\tand\nnewlines  ": "tabs and newlines",
	} {
		if got := normalizeText(in); got != want {
			t.Errorf("normalizeText(%q) = %q; want %q", in, got, want)
		}
	}
	if got := clip("☃☃☃☃☃☃☃", 5); got != "☃☃☃☃☃" {
		t.Fatalf("clip should count runes, got %q", got)
	}
	if got := clip("hi", 0); got != "hi" {
		t.Fatalf("clip with 0 should pass through")
	}
	if p, size, off := pageWindow(0, 0); p != 1 || size != 20 || off != 0 {
		t.Fatalf("pageWindow defaults = %d,%d,%d", p, size, off)
	}
	if _, _, off := pageWindow(3, 10); off != 20 {
		t.Fatalf("pageWindow offset = %d", off)
	}
}

package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

func TestCreateUser_AssignsIDAndRejectsDuplicateEmail(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	u := &domain.User{Email: "a@x.io", Password: "p", Name: "A"}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() || u.Skillpoints != 0 {
		t.Fatalf("unexpected user after create: %+v", u)
	}

	err := CreateUser(ctx, db, &domain.User{Email: "a@x.io", Password: "q"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetUserByEmail(ctx, db, "a@x.io")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if _, err := GetUser(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserProfile_TouchesOnlyGivenFields(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	u := &domain.User{Email: "a@x.io", Password: "p", City: "Kazan", Bio: "old"}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := SetSkillpoints(ctx, db, u.ID, 7); err != nil {
		t.Fatalf("SetSkillpoints: %v", err)
	}

	configured := true
	if err := UpdateUserProfile(ctx, db, u.ID, ProfileUpdate{Bio: strp("new"), ProfileConfigured: &configured}); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	got, _ := GetUser(ctx, db, u.ID)
	if got.Bio != "new" || got.City != "Kazan" || !got.ProfileConfigured || got.Skillpoints != 7 {
		t.Fatalf("unexpected user after update: %+v", got)
	}

	if err := UpdateUserProfile(ctx, db, "missing", ProfileUpdate{Bio: strp("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
	if err := UpdateUserProfile(ctx, db, "missing", ProfileUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty update of missing user, got %v", err)
	}
}

func TestCreditAndGuardedDebit(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	u := &domain.User{Email: "a@x.io", Password: "p", Skillpoints: 5}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := CreditSkillpoints(ctx, db, u.ID, 3); err != nil {
		t.Fatalf("CreditSkillpoints: %v", err)
	}
	if err := CreditSkillpoints(ctx, db, "missing", 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound crediting missing user, got %v", err)
	}

	ok, err := DebitSkillpoints(ctx, db, u.ID, 9)
	if err != nil || ok {
		t.Fatalf("debit beyond balance should not apply: ok=%v err=%v", ok, err)
	}
	ok, err = DebitSkillpoints(ctx, db, u.ID, 8)
	if err != nil || !ok {
		t.Fatalf("debit of full balance should apply: ok=%v err=%v", ok, err)
	}
	got, _ := GetUser(ctx, db, u.ID)
	if got.Skillpoints != 0 {
		t.Fatalf("balance = %d, want 0", got.Skillpoints)
	}
	if ok, _ := DebitSkillpoints(ctx, db, "missing", 0); ok {
		t.Fatalf("debit of missing user should not apply")
	}
}

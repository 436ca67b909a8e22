package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

func TestCreate_Validation(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	a := mkUser(t, db, "a", 10)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateRequestInput
		want error
	}{
		{"blank title", CreateRequestInput{CreatorID: a, Title: "  ", Subject: "math"}, ErrInvalidInput},
		{"blank subject", CreateRequestInput{CreatorID: a, Title: "t", Subject: ""}, ErrInvalidInput},
		{"unknown type", CreateRequestInput{CreatorID: a, Title: "t", Subject: "s", Type: "lecture"}, ErrInvalidInput},
		{"negative skillpoints", CreateRequestInput{CreatorID: a, Title: "t", Subject: "s", Skillpoints: -1}, ErrInvalidSkillpoints},
		{"unknown creator", CreateRequestInput{CreatorID: "ghost", Title: "t", Subject: "s"}, ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if n := countRows(t, db, &domain.Request{}); n != 0 {
		t.Fatalf("rejected creates must not insert, found %d rows", n)
	}
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	a := mkUser(t, db, "Petrova Anna", 0)

	r, err := s.Create(context.Background(), CreateRequestInput{
		CreatorID: a, Title: "  Алгебра:   формулы ", Subject: "алгебра", ClassFrom: " 8 ", ClassTo: "9",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Title != "Алгебра: формулы" || r.Subject != "Алгебра" || r.ClassFrom != "8" {
		t.Fatalf("normalization mismatch: %+v", r)
	}
	if r.Type != domain.RequestAsk || r.Status != domain.RequestOpen || r.Accepted || r.AcceptedBy != nil {
		t.Fatalf("defaults mismatch: %+v", r)
	}
	if r.CreatorName == nil || *r.CreatorName != "Petrova Anna" {
		t.Fatalf("creator name should default to the user's name, got %v", r.CreatorName)
	}
}

func TestCreate_WithoutCreatorSkipsBalanceCheck(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	r, err := s.Create(context.Background(), CreateRequestInput{Title: "t", Subject: "s", Skillpoints: 50, CreatorName: "guest"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.CreatorID != nil || r.CreatorName == nil || *r.CreatorName != "guest" {
		t.Fatalf("unexpected creator fields: %+v", r)
	}
}

func TestCreate_ReservesAvailableBalance(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	a := mkUser(t, db, "a", 10)

	openRequest(t, s, a, 4)
	if got := available(t, db, a); got != 6 {
		t.Fatalf("available after reserving 4 of 10 = %d, want 6", got)
	}
	openRequest(t, s, a, 6)
	if got := available(t, db, a); got != 0 {
		t.Fatalf("available after reserving all = %d, want 0", got)
	}
	// Zero-point requests are always allowed.
	openRequest(t, s, a, 0)

	before := countRows(t, db, &domain.Request{})
	_, err := s.Create(context.Background(), CreateRequestInput{CreatorID: a, Title: "t", Subject: "s", Skillpoints: 1})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("expected *InsufficientBalanceError, got %T", err)
	}
	if ib.Balance != 10 || ib.Reserved != 10 || ib.Available != 0 || ib.Requested != 1 {
		t.Fatalf("unexpected amounts: %+v", ib)
	}
	if !strings.Contains(ib.Error(), "available 0") {
		t.Fatalf("error text should carry amounts: %q", ib.Error())
	}
	if after := countRows(t, db, &domain.Request{}); after != before {
		t.Fatalf("failed create inserted a row: %d -> %d", before, after)
	}
	if balanceOfID(t, db, a) != 10 {
		t.Fatalf("stored balance must not change on create")
	}
}

func TestAccept_CreatesOneChatAndRejectsSecondAccept(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Now = func() time.Time { return fixed }
	a, b, c := mkUser(t, db, "a", 10), mkUser(t, db, "b", 0), mkUser(t, db, "c", 0)
	r := openRequest(t, s, a, 5)

	before := testutil.ToFloat64(requestTransitions.WithLabelValues(string(domain.TransitionAccept)))
	got, chat, err := s.Accept(context.Background(), r.ID, b)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.Status != domain.RequestAccepted || !got.Accepted || *got.AcceptedBy != b || !got.AcceptedAt.Equal(fixed) {
		t.Fatalf("unexpected accepted request: %+v", got)
	}
	if chat.Status != domain.ChatActive || chat.AccepterID != b || chat.CreatorID == nil || *chat.CreatorID != a || chat.RequestID != r.ID {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if d := testutil.ToFloat64(requestTransitions.WithLabelValues(string(domain.TransitionAccept))) - before; d != 1 {
		t.Fatalf("accept transitions counter moved by %v, want 1", d)
	}

	if _, _, err := s.Accept(context.Background(), r.ID, c); !errors.Is(err, ErrAlreadyAccepted) {
		t.Fatalf("second accept: got %v, want ErrAlreadyAccepted", err)
	}
	stored := requestStatus(t, db, r.ID)
	if *stored.AcceptedBy != b {
		t.Fatalf("second accept changed acceptedBy to %s", *stored.AcceptedBy)
	}
	if n := countRows(t, db, &domain.Chat{}); n != 1 {
		t.Fatalf("expected exactly one chat, got %d", n)
	}
	// Acceptance does not re-check or move balances.
	if available(t, db, a) != 5 || balanceOfID(t, db, b) != 0 {
		t.Fatalf("accept must not touch balances")
	}
}

func TestAccept_Errors(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	a := mkUser(t, db, "a", 10)
	r := openRequest(t, s, a, 1)
	ctx := context.Background()

	if _, _, err := s.Accept(ctx, "missing", a); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("missing request: %v", err)
	}
	if _, _, err := s.Accept(ctx, r.ID, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank user: %v", err)
	}
	if _, _, err := s.Accept(ctx, r.ID, a); !errors.Is(err, ErrSelfAccept) {
		t.Fatalf("self accept: %v", err)
	}
	if got := requestStatus(t, db, r.ID); got.Status != domain.RequestOpen || got.AcceptedBy != nil {
		t.Fatalf("self accept mutated request: %+v", got)
	}
	if n := countRows(t, db, &domain.Chat{}); n != 0 {
		t.Fatalf("self accept created a chat")
	}
}

func TestCreatorCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("from open", func(t *testing.T) {
		db := newServiceDB(t)
		s := NewRequestService(db)
		a := mkUser(t, db, "a", 10)
		r := openRequest(t, s, a, 7)

		got, err := s.CreatorCancel(ctx, r.ID, a)
		if err != nil || got.Status != domain.RequestCancelled {
			t.Fatalf("CreatorCancel = %+v, %v", got, err)
		}
		if available(t, db, a) != 10 {
			t.Fatalf("cancel should release the reservation")
		}
	})

	t.Run("from accepted cancels the chat", func(t *testing.T) {
		db := newServiceDB(t)
		s := NewRequestService(db)
		a, b := mkUser(t, db, "a", 10), mkUser(t, db, "b", 0)
		r := openRequest(t, s, a, 3)
		_, chat, err := s.Accept(ctx, r.ID, b)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}

		got, err := s.CreatorCancel(ctx, r.ID, a)
		if err != nil {
			t.Fatalf("CreatorCancel: %v", err)
		}
		if got.Status != domain.RequestCancelled || got.AcceptedBy != nil || got.AcceptedAt != nil {
			t.Fatalf("unexpected request: %+v", got)
		}
		stored := requestStatus(t, db, r.ID)
		if stored.Status != domain.RequestCancelled || stored.Accepted || stored.AcceptedBy != nil || stored.AcceptedAt != nil {
			t.Fatalf("stored request not cleared: %+v", stored)
		}
		if st := chatStatus(t, db, chat.ID); st != domain.ChatCancelled {
			t.Fatalf("chat status = %s, want cancelled", st)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		db := newServiceDB(t)
		s := NewRequestService(db)
		a, b := mkUser(t, db, "a", 10), mkUser(t, db, "b", 0)
		r := openRequest(t, s, a, 0)

		if _, err := s.CreatorCancel(ctx, "missing", a); !errors.Is(err, ErrRequestNotFound) {
			t.Fatalf("missing: %v", err)
		}
		if _, err := s.CreatorCancel(ctx, r.ID, b); !errors.Is(err, ErrForbidden) {
			t.Fatalf("non-creator: %v", err)
		}
		if _, err := s.CreatorCancel(ctx, r.ID, a); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := s.CreatorCancel(ctx, r.ID, a); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("cancel of cancelled: %v", err)
		}

		done := openRequest(t, s, a, 0)
		_, chat, _ := s.Accept(ctx, done.ID, b)
		if _, err := NewChatService(db).Confirm(ctx, chat.ID); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if _, err := s.CreatorCancel(ctx, done.ID, a); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("cancel of completed: %v", err)
		}
	})
}

func TestListOpenPage(t *testing.T) {
	db := newServiceDB(t)
	s := NewRequestService(db)
	a, b := mkUser(t, db, "a", 0), mkUser(t, db, "b", 0)
	for i := 0; i < 3; i++ {
		openRequest(t, s, a, 0)
	}
	taken := openRequest(t, s, a, 0)
	if _, _, err := s.Accept(context.Background(), taken.ID, b); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	items, total, err := s.ListOpenPage(context.Background(), 0, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("ListOpenPage = %d items, total %d, %v", len(items), total, err)
	}
	for _, it := range items {
		if it.Status != domain.RequestOpen {
			t.Fatalf("non-open request listed: %+v", it)
		}
	}
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}

package domain

import "testing"

func TestNextRequestStatus(t *testing.T) {
	all := []RequestStatus{RequestOpen, RequestAccepted, RequestCancelled, RequestCompleted}
	want := map[RequestTransition]map[RequestStatus]RequestStatus{
		TransitionAccept:         {RequestOpen: RequestAccepted},
		TransitionCreatorCancel:  {RequestOpen: RequestCancelled, RequestAccepted: RequestCancelled},
		TransitionAccepterCancel: {RequestAccepted: RequestOpen},
		TransitionComplete:       {RequestAccepted: RequestCompleted},
	}
	for tr, edges := range want {
		for _, from := range all {
			got, ok := NextRequestStatus(from, tr)
			to, allowed := edges[from]
			if ok != allowed {
				t.Fatalf("%s from %s: allowed=%v, want %v", tr, from, ok, allowed)
			}
			if allowed && got != to {
				t.Fatalf("%s from %s = %s, want %s", tr, from, got, to)
			}
			if !allowed && got != from {
				t.Fatalf("%s from %s: rejected transition must return the input state, got %s", tr, from, got)
			}
		}
	}
}

func TestCancelTransitionsAreDistinct(t *testing.T) {
	creator, _ := NextRequestStatus(RequestAccepted, TransitionCreatorCancel)
	accepter, _ := NextRequestStatus(RequestAccepted, TransitionAccepterCancel)
	if creator == accepter {
		t.Fatalf("creator and accepter cancellation must lead to different states, both gave %s", creator)
	}
	if !creator.Terminal() || accepter.Terminal() {
		t.Fatalf("creator cancel should be terminal and accepter cancel should not")
	}
}

func TestNextChatStatus(t *testing.T) {
	if got, ok := NextChatStatus(ChatActive, ChatCancel); !ok || got != ChatCancelled {
		t.Fatalf("cancel from active = %s,%v", got, ok)
	}
	if got, ok := NextChatStatus(ChatActive, ChatConfirm); !ok || got != ChatCompleted {
		t.Fatalf("confirm from active = %s,%v", got, ok)
	}
	for _, from := range []ChatStatus{ChatCancelled, ChatCompleted} {
		for _, tr := range []ChatTransition{ChatCancel, ChatConfirm} {
			if _, ok := NextChatStatus(from, tr); ok {
				t.Fatalf("%s from %s should be rejected", tr, from)
			}
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !RequestOpen.Reserving() || !RequestAccepted.Reserving() {
		t.Fatalf("open and accepted must reserve skillpoints")
	}
	if RequestCancelled.Reserving() || RequestCompleted.Reserving() {
		t.Fatalf("terminal states must not reserve skillpoints")
	}
	if !RequestAsk.Valid() || !RequestOffer.Valid() || RequestType("x").Valid() {
		t.Fatalf("RequestType.Valid mismatch")
	}
}

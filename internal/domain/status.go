package domain

// RequestType distinguishes asks from offers. The lifecycle treats both alike.
type RequestType string

const (
	RequestAsk   RequestType = "ask"
	RequestOffer RequestType = "offer"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool { return t == RequestAsk || t == RequestOffer }

// RequestStatus is the authoritative lifecycle state of a Request.
type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestAccepted  RequestStatus = "accepted"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool { return s == RequestCancelled || s == RequestCompleted }

// Reserving reports whether a request in state s holds its skillpoints
// against the creator's available balance.
func (s RequestStatus) Reserving() bool { return s == RequestOpen || s == RequestAccepted }

// ReservingStatuses lists the states counted by the available-balance sum.
var ReservingStatuses = []RequestStatus{RequestOpen, RequestAccepted}

// RequestTransition tags a lifecycle edge. Creator cancellation and accepter
// cancellation are different edges with different targets and must not be
// merged: the first is terminal, the second re-opens the request.
type RequestTransition string

const (
	TransitionAccept         RequestTransition = "accept"
	TransitionCreatorCancel  RequestTransition = "creator_cancel"
	TransitionAccepterCancel RequestTransition = "accepter_cancel"
	TransitionComplete       RequestTransition = "complete"
)

// NextRequestStatus returns the state reached by applying t to from, and
// false when t is not allowed from that state.
func NextRequestStatus(from RequestStatus, t RequestTransition) (RequestStatus, bool) {
	switch t {
	case TransitionAccept:
		if from == RequestOpen {
			return RequestAccepted, true
		}
	case TransitionCreatorCancel:
		if from == RequestOpen || from == RequestAccepted {
			return RequestCancelled, true
		}
	case TransitionAccepterCancel:
		if from == RequestAccepted {
			return RequestOpen, true
		}
	case TransitionComplete:
		if from == RequestAccepted {
			return RequestCompleted, true
		}
	}
	return from, false
}

// ChatStatus is the state of a Chat.
type ChatStatus string

const (
	ChatActive    ChatStatus = "active"
	ChatCancelled ChatStatus = "cancelled"
	ChatCompleted ChatStatus = "completed"
)

// ChatTransition tags a chat edge.
type ChatTransition string

const (
	ChatCancel  ChatTransition = "cancel"
	ChatConfirm ChatTransition = "confirm"
)

// NextChatStatus returns the state reached by applying t to from. Both
// transitions leave only the active state.
func NextChatStatus(from ChatStatus, t ChatTransition) (ChatStatus, bool) {
	if from != ChatActive {
		return from, false
	}
	switch t {
	case ChatCancel:
		return ChatCancelled, true
	case ChatConfirm:
		return ChatCompleted, true
	}
	return from, false
}

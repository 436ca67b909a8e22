// Package domain defines the persistence models for users, help requests,
// chats, and chat messages. These types are mapped with GORM and form the
// core data layer of the tutoring backend.
package domain

import (
	"time"
)

// User is a marketplace participant. Profile fields are free-form and carry
// no meaning for the request lifecycle; Skillpoints is the only field the
// core mutates (through settlement).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Email: unique login identifier (lowercased on write).
//   - Password: stored as given, never serialized.
//   - Skillpoints: non-negative balance, 0 at registration.
type User struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	FirstName         string    `json:"first_name"         gorm:"type:varchar(128)"`
	LastName          string    `json:"last_name"          gorm:"type:varchar(128)"`
	Name              string    `json:"name"               gorm:"type:varchar(255)"`
	Email             string    `json:"email"              gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Password          string    `json:"-"                  gorm:"type:varchar(255);not null"`
	SchoolClass       string    `json:"school_class"       gorm:"type:varchar(32)"`
	Age               string    `json:"age"                gorm:"type:varchar(16)"`
	City              string    `json:"city"               gorm:"type:varchar(128)"`
	AvgGrade          string    `json:"avg_grade"          gorm:"type:varchar(16)"`
	Gender            string    `json:"gender"             gorm:"type:varchar(32)"`
	Bio               string    `json:"bio"                gorm:"type:text"`
	ProfileConfigured bool      `json:"profile_configured" gorm:"not null;default:false"`
	Skillpoints       int64     `json:"skillpoints"        gorm:"not null;default:0;check:chk_users_skillpoints,skillpoints >= 0"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Request is a posted ask/offer for tutoring help. Skillpoints is the stake
// reserved from the creator's available balance while the request is open or
// accepted, and transferred to the helper on completion. It never changes
// after creation.
type Request struct {
	ID          string        `json:"id"           gorm:"type:char(36);primaryKey"`
	CreatorID   *string       `json:"creator_id"   gorm:"type:char(36);index:idx_requests_creator_status,priority:1"`
	CreatorName *string       `json:"creator_name" gorm:"type:varchar(255)"`
	Title       string        `json:"title"        gorm:"type:varchar(255);not null"`
	Subject     string        `json:"subject"      gorm:"type:varchar(128);not null"`
	Text        string        `json:"text"         gorm:"type:text"`
	ClassFrom   string        `json:"class_from"   gorm:"type:varchar(16)"`
	ClassTo     string        `json:"class_to"     gorm:"type:varchar(16)"`
	Type        RequestType   `json:"type"         gorm:"type:varchar(16);not null;default:'ask';check:chk_requests_type,type IN ('ask','offer')"`
	Skillpoints int64         `json:"skillpoints"  gorm:"not null;default:0;check:chk_requests_skillpoints,skillpoints >= 0"`
	Status      RequestStatus `json:"status"       gorm:"type:varchar(16);not null;default:'open';index:idx_requests_creator_status,priority:2;index:idx_requests_status_created,priority:1"`
	Accepted    bool          `json:"accepted"     gorm:"not null;default:false"`
	AcceptedBy  *string       `json:"accepted_by"  gorm:"type:char(36)"`
	AcceptedAt  *time.Time    `json:"accepted_at"`
	CreatedAt   time.Time     `json:"created_at"   gorm:"index:idx_requests_status_created,priority:2"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Chat is the two-party conversation spawned when a request is accepted.
// Its participants are fixed at creation.
type Chat struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	RequestID  string     `json:"request_id"  gorm:"type:char(36);not null;index:idx_chats_request_status,priority:1"`
	CreatorID  *string    `json:"creator_id"  gorm:"type:char(36);index"`
	AccepterID string     `json:"accepter_id" gorm:"type:char(36);not null;index"`
	Status     ChatStatus `json:"status"      gorm:"type:varchar(16);not null;default:'active';index:idx_chats_request_status,priority:2"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Request Request `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// ChatMessage is a single append-only entry in a chat. IDs are ULIDs so that
// ordering by (created_at, id) is chronological even within one millisecond.
type ChatMessage struct {
	ID        string    `json:"id"         gorm:"type:char(26);primaryKey"`
	ChatID    string    `json:"chat_id"    gorm:"type:char(36);not null;index:idx_chat_messages_chat,priority:1"`
	SenderID  string    `json:"sender_id"  gorm:"type:varchar(64);not null"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_messages_chat,priority:2"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Package domain defines the persistence models for categories, suggestions,
// votes, and replies. These types are mapped with GORM and form the core data
// layer of the suggestion box.
package domain

import "time"

// ClientAssertedID is the opaque per-browser identifier a student presents in
// the identity cookie. It is NOT an authenticated identity: the client controls
// it, so clearing the cookie yields a fresh identity and a fresh vote allowance.
type ClientAssertedID string

// Empty reports whether no identifier was presented.
func (id ClientAssertedID) Empty() bool { return id == "" }

// Category is static reference data seeded at startup. Every suggestion
// belongs to exactly one category.
type Category struct {
	ID   uint   `json:"id"   gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_categories_name"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Suggestion is a student-submitted idea or complaint. Suggestions are
// immutable once created; the store assigns the id and the default status.
//
// Fields:
//   - ID: store-assigned autoincrement key; also the creation order.
//   - CategoryID: required foreign key to categories.
//   - Status: free-form state, defaults to "received".
type Suggestion struct {
	ID         uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	Title      string    `json:"title"       gorm:"type:varchar(200);not null"`
	Content    string    `json:"content"     gorm:"type:text;not null"`
	CategoryID uint      `json:"category_id" gorm:"not null;index"`
	Status     string    `json:"status"      gorm:"type:varchar(32);not null;default:'received'"`
	CreatedAt  time.Time `json:"created_at"`

	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Suggestion.
func (Suggestion) TableName() string { return "suggestions" }

// Vote is one student's endorsement of one suggestion. At most one row exists
// per (suggestion, student); the unique index is the only guard, so
// concurrent duplicate inserts resolve to one success and one violation.
type Vote struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	SuggestionID uint      `json:"suggestion_id" gorm:"not null;index;uniqueIndex:ux_votes_suggestion_student,priority:1"`
	StudentID    string    `json:"student_id"    gorm:"type:varchar(128);not null;uniqueIndex:ux_votes_suggestion_student,priority:2"`
	CreatedAt    time.Time `json:"created_at"`

	Suggestion Suggestion `json:"-" gorm:"foreignKey:SuggestionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Reply is an admin-authored response attached to a suggestion. Replies are
// append-only and read oldest first.
type Reply struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	SuggestionID uint      `json:"suggestion_id" gorm:"not null;index:idx_replies_thread,priority:1"`
	Content      string    `json:"content"       gorm:"type:text;not null"`
	RepliedAt    time.Time `json:"replied_at"    gorm:"not null;index:idx_replies_thread,priority:2"`

	Suggestion Suggestion `json:"-" gorm:"foreignKey:SuggestionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Reply.
func (Reply) TableName() string { return "replies" }

// SuggestionView is one row of the suggestion feed as seen by a viewer.
// DisplayNo ascends with creation order even though the feed itself is
// newest first.
type SuggestionView struct {
	DisplayNo    int64     `json:"displayNo"`
	SuggestionID uint      `json:"suggestionId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	Category     string    `json:"category"`
	VoteCount    int64     `json:"voteCount"`
	ReplyCount   int64     `json:"replyCount"`
	Voted        bool      `json:"voted"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ReplyView is one entry of a reply thread.
type ReplyView struct {
	ReplyID      string    `json:"replyId"`
	SuggestionID uint      `json:"suggestionId"`
	Content      string    `json:"content"`
	RepliedAt    time.Time `json:"repliedAt"`
}

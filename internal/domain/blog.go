package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlogState represents the lifecycle state of a blog post.
type BlogState string

const (
	// BlogStateDraft is the initial state; drafts are visible only to their author.
	BlogStateDraft BlogState = "draft"

	// BlogStatePublish is the terminal, publicly visible state.
	BlogStatePublish BlogState = "publish"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// IsValid returns true if the state is draft or publish.
func (s BlogState) IsValid() bool {
	return s == BlogStateDraft || s == BlogStatePublish
}

// ParseBlogState converts a query value into a BlogState.
// An empty string yields an empty state (no filter).
func ParseBlogState(s string) (BlogState, error) {
	if s == "" {
		return "", nil
	}
	state := BlogState(strings.ToLower(strings.TrimSpace(s)))
	if !state.IsValid() {
		return "", NewDomainError(ErrInvalidBlogState, "state must be draft or publish", s)
	}
	return state, nil
}

// Blog represents a blog post.
type Blog struct {
	// ID is the unique identifier for the blog (server generated).
	ID uuid.UUID `json:"id"`

	// Title is globally unique.
	Title string `json:"title"`

	Description string `json:"description"`

	Body string `json:"body"`

	// Tags is a free-form string.
	Tags string `json:"tags"`

	State BlogState `json:"state"`

	// ReadCount is stored but never incremented by the API.
	ReadCount int64 `json:"read_count"`

	// ReadingTime is derived from Body whenever the body is written.
	ReadingTime string `json:"reading_time"`

	// AuthorID references the owning User.
	AuthorID uuid.UUID `json:"author_id"`

	// Author is populated on reads for response shaping only.
	Author *Author `json:"author,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBlog creates a new draft blog owned by authorID.
func NewBlog(authorID uuid.UUID, title, description, body, tags string) *Blog {
	now := time.Now().UTC()
	b := &Blog{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Tags:        tags,
		State:       BlogStateDraft,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.SetBody(body)
	return b
}

// SetBody replaces the body and recomputes the reading time.
func (b *Blog) SetBody(body string) {
	b.Body = strings.TrimSpace(body)
	b.ReadingTime = EstimateReadingTime(b.Body)
}

// IsPublished returns true if the blog is in the publish state.
func (b *Blog) IsPublished() bool {
	return b.State == BlogStatePublish
}

// IsAuthor returns true if userID owns the blog.
func (b *Blog) IsAuthor(userID uuid.UUID) bool {
	return b.AuthorID == userID
}

// VisibleTo reports whether the blog may be shown to userID.
// uuid.Nil stands for an anonymous caller.
func (b *Blog) VisibleTo(userID uuid.UUID) bool {
	return b.IsPublished() || (userID != uuid.Nil && b.IsAuthor(userID))
}

// Publish transitions the blog from draft to publish on behalf of requester.
func (b *Blog) Publish(requester uuid.UUID) error {
	if !b.IsAuthor(requester) {
		return ErrNotBlogAuthor
	}
	if b.IsPublished() {
		return ErrBlogAlreadyPublished
	}
	b.State = BlogStatePublish
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// EstimateReadingTime returns "<n> min read" where n is the word count divided
// by WordsPerMinute, rounded up, with a minimum of one minute.
func EstimateReadingTime(body string) string {
	words := len(strings.Fields(body))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

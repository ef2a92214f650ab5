// Package model defines the core note and session data types.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks local validation failures. Requests that fail
// validation never reach the network.
var ErrInvalidInput = errors.New("invalid input")

// Priority is the optional urgency level of a note.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities are the allowed priority levels.
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// ParsePriority converts user input into a Priority. Empty input yields nil.
func ParsePriority(s string) (*Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}
	p := Priority(s)
	if !ValidPriorities[p] {
		return nil, fmt.Errorf("%w: priority %q (valid: low, medium, high)", ErrInvalidInput, s)
	}
	return &p, nil
}

// Note is a single note owned by the signed-in user. ID and CreatedAt are
// assigned by the note service and never change afterwards.
type Note struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	UserID         string     `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	Priority       *Priority  `json:"priority,omitempty"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
}

// Clone returns a deep copy so callers cannot alias collection state.
func (n Note) Clone() Note {
	c := n
	if n.Priority != nil {
		p := *n.Priority
		c.Priority = &p
	}
	if n.CompletionTime != nil {
		t := *n.CompletionTime
		c.CompletionTime = &t
	}
	return c
}

// CreateInput holds the user-supplied fields of a new note.
type CreateInput struct {
	Title          string
	Content        string
	Priority       *Priority
	CompletionTime *time.Time
}

// Validate checks the input before it is sent.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Priority != nil && !ValidPriorities[*in.Priority] {
		return fmt.Errorf("%w: priority %q", ErrInvalidInput, *in.Priority)
	}
	return nil
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	Title          *string
	Content        *string
	Priority       *Priority
	CompletionTime *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Priority == nil && p.CompletionTime == nil
}

// Validate checks the patch before it is sent.
func (p Patch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if p.Priority != nil && !ValidPriorities[*p.Priority] {
		return fmt.Errorf("%w: priority %q", ErrInvalidInput, *p.Priority)
	}
	return nil
}

// Apply returns n with the patch fields applied. ID and CreatedAt are kept.
func (p Patch) Apply(n Note) Note {
	out := n.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Priority != nil {
		v := *p.Priority
		out.Priority = &v
	}
	if p.CompletionTime != nil {
		v := *p.CompletionTime
		out.CompletionTime = &v
	}
	return out
}

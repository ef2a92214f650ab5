package noteclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/unotes/internal/model"
)

// wireNote is a note as the service encodes it.
type wireNote struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	UserID         string `json:"userId"`
	CreatedAt      string `json:"createdAt"`
	Priority       string `json:"priority,omitempty"`
	CompletionTime string `json:"completionTime,omitempty"`
}

func (w wireNote) toModel() (model.Note, error) {
	if w.ID == "" {
		return model.Note{}, fmt.Errorf("note %q: missing id", w.Title)
	}
	n := model.Note{
		ID:      w.ID,
		Title:   w.Title,
		Content: w.Content,
		UserID:  w.UserID,
	}
	if w.CreatedAt != "" {
		t, err := parseTime(w.CreatedAt)
		if err != nil {
			return model.Note{}, fmt.Errorf("note %s: createdAt: %w", w.ID, err)
		}
		n.CreatedAt = t
	}
	if w.CompletionTime != "" {
		t, err := parseTime(w.CompletionTime)
		if err != nil {
			return model.Note{}, fmt.Errorf("note %s: completionTime: %w", w.ID, err)
		}
		n.CompletionTime = &t
	}
	if w.Priority != "" {
		p := model.Priority(strings.ToLower(w.Priority))
		if !model.ValidPriorities[p] {
			return model.Note{}, fmt.Errorf("note %s: unknown priority %q", w.ID, w.Priority)
		}
		n.Priority = &p
	}
	return n, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func priorityString(p *model.Priority) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

type createRequest struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	Priority       string `json:"priority,omitempty"`
	CompletionTime string `json:"completionTime,omitempty"`
}

// CreateResult is the service's answer to a create.
type CreateResult struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// UpdateRequest carries the full new values of a note.
type UpdateRequest struct {
	ID                string
	NewTitle          string
	NewContent        string
	NewPriority       *model.Priority
	NewCompletionTime *time.Time
}

type updateWire struct {
	ID                string `json:"id"`
	NewTitle          string `json:"newTitle"`
	NewContent        string `json:"newContent"`
	NewPriority       string `json:"newPriority,omitempty"`
	NewCompletionTime string `json:"newCompletionTime,omitempty"`
}

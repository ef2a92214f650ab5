// Package notes holds the local note collection of a signed-in session and
// keeps it consistent with the note service.
//
// Local state changes only after the service confirms a mutation. A rejected
// mutation leaves the collection exactly as it was.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rcliao/unotes/internal/httpapi"
	"github.com/rcliao/unotes/internal/model"
	"github.com/rcliao/unotes/internal/noteclient"
	"github.com/rcliao/unotes/internal/session"
	"github.com/rcliao/unotes/internal/store"
)

// ErrNoteNotFound is returned when a note id is not in the local collection.
var ErrNoteNotFound = errors.New("note not found")

// Service is the subset of the note client the manager uses.
type Service interface {
	Create(ctx context.Context, token string, in model.CreateInput) (noteclient.CreateResult, error)
	Update(ctx context.Context, token string, r noteclient.UpdateRequest) error
	Delete(ctx context.Context, token, id string) error
	List(ctx context.Context, token string) ([]model.Note, error)
}

// TokenSource supplies the current access token. *session.Resolver
// satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Manager owns the note collection. It is safe for concurrent use; the lock
// is never held across a request, so racing mutations on one id resolve in
// response order.
type Manager struct {
	svc    Service
	tokens TokenSource
	logger *slog.Logger
	clock  func() time.Time

	mu        sync.Mutex
	order     []string
	byID      map[string]model.Note
	gen       uint64 // bumped whenever the collection is replaced
	observers []func(Mutation)
	entropy   *rand.Rand
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source used for CreatedAt of new notes.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewManager creates a manager with an empty collection.
func NewManager(svc Service, tokens TokenSource, opts ...Option) *Manager {
	m := &Manager{
		svc:     svc,
		tokens:  tokens,
		logger:  slog.New(slog.DiscardHandler),
		clock:   time.Now,
		byID:    make(map[string]model.Note),
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) token(ctx context.Context) (string, error) {
	t, err := m.tokens.AccessToken(ctx)
	if errors.Is(err, store.ErrNoToken) {
		return "", session.ErrSignedOut
	}
	if err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}
	return t, nil
}

// Load replaces the collection with the service's list. A 404 means the
// user has no notes. On any other failure the collection is left empty.
func (m *Manager) Load(ctx context.Context) error {
	token, err := m.token(ctx)
	if err != nil {
		m.replace(nil)
		return err
	}

	list, err := m.svc.List(ctx, token)
	if err != nil {
		if httpapi.IsStatus(err, http.StatusNotFound) {
			m.replace(nil)
			return nil
		}
		m.replace(nil)
		return fmt.Errorf("load notes: %w", err)
	}

	m.replace(list)
	m.logger.DebugContext(ctx, "notes loaded", "count", len(list))
	return nil
}

func (m *Manager) replace(list []model.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.order = m.order[:0]
	m.byID = make(map[string]model.Note, len(list))
	for _, n := range list {
		m.putLocked(n.Clone())
	}
}

// putLocked inserts or replaces by id, keeping the original position of a
// replaced entry.
func (m *Manager) putLocked(n model.Note) {
	if _, ok := m.byID[n.ID]; !ok {
		m.order = append(m.order, n.ID)
	}
	m.byID[n.ID] = n
}

func (m *Manager) removeLocked(id string) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Reset empties the collection. Wire it to session changes so state from a
// previous session is dropped.
func (m *Manager) Reset() {
	m.replace(nil)
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Create sends a new note and, once the service assigns its id, adds it to
// the collection.
func (m *Manager) Create(ctx context.Context, in model.CreateInput) (model.Note, error) {
	if err := in.Validate(); err != nil {
		return model.Note{}, err
	}
	op := m.begin(ctx, MutationCreate, "")
	gen := m.generation()

	token, err := m.token(ctx)
	if err != nil {
		return model.Note{}, m.reject(ctx, op, err)
	}
	res, err := m.svc.Create(ctx, token, in)
	if err != nil {
		return model.Note{}, m.reject(ctx, op, fmt.Errorf("create note: %w", err))
	}

	n := model.Note{
		ID:        res.ID,
		Title:     in.Title,
		Content:   in.Content,
		UserID:    res.UserID,
		CreatedAt: m.clock(),
	}
	n = model.Patch{Priority: in.Priority, CompletionTime: in.CompletionTime}.Apply(n)

	// A collection replaced while the request was in flight belongs to a
	// later Load or session; the note arrives with the next Load.
	m.mu.Lock()
	stale := m.gen != gen
	if !stale {
		m.putLocked(n)
	}
	m.mu.Unlock()
	if stale {
		m.logger.DebugContext(ctx, "collection replaced, local create skipped", "note", n.ID)
	}

	op.NoteID = n.ID
	m.apply(ctx, op)
	return n.Clone(), nil
}

// Update sends the patched note and, on success, replaces the local entry.
// Fields absent from the patch are sent with their current values.
func (m *Manager) Update(ctx context.Context, id string, patch model.Patch) (model.Note, error) {
	if err := patch.Validate(); err != nil {
		return model.Note{}, err
	}
	m.mu.Lock()
	current, ok := m.byID[id]
	gen := m.gen
	m.mu.Unlock()
	if !ok {
		return model.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	current = current.Clone()
	op := m.begin(ctx, MutationUpdate, id)

	token, err := m.token(ctx)
	if err != nil {
		return model.Note{}, m.reject(ctx, op, err)
	}
	next := patch.Apply(current)
	err = m.svc.Update(ctx, token, noteclient.UpdateRequest{
		ID:                id,
		NewTitle:          next.Title,
		NewContent:        next.Content,
		NewPriority:       next.Priority,
		NewCompletionTime: next.CompletionTime,
	})
	if err != nil {
		return model.Note{}, m.reject(ctx, op, fmt.Errorf("update note %s: %w", id, err))
	}

	// Apply to whatever is stored now. A note deleted meanwhile, or a
	// collection replaced by Load or Reset, is left alone.
	m.mu.Lock()
	stored, ok := m.byID[id]
	stale := !ok || m.gen != gen
	if !stale {
		next = patch.Apply(stored)
		m.putLocked(next)
	}
	m.mu.Unlock()
	if stale {
		m.logger.DebugContext(ctx, "note gone from collection, local update skipped", "note", id)
	}

	m.apply(ctx, op)
	return next.Clone(), nil
}

// Delete removes a note remotely and then locally.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note id is required", model.ErrInvalidInput)
	}
	op := m.begin(ctx, MutationDelete, id)

	token, err := m.token(ctx)
	if err != nil {
		return m.reject(ctx, op, err)
	}
	if err := m.svc.Delete(ctx, token, id); err != nil {
		return m.reject(ctx, op, fmt.Errorf("delete note %s: %w", id, err))
	}

	m.mu.Lock()
	m.removeLocked(id)
	m.mu.Unlock()

	m.apply(ctx, op)
	return nil
}

// Get returns a copy of one note.
func (m *Manager) Get(id string) (model.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return model.Note{}, false
	}
	return n.Clone(), true
}

// Snapshot returns a copy of the collection. No particular order is
// promised.
func (m *Manager) Snapshot() []model.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Note, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].Clone())
	}
	return out
}

// Len returns the number of notes held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

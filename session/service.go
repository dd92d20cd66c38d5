package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mealprep"
	"mealprep/pantry"
	"mealprep/schedule"
	"mealprep/storage"
)

// TimelineBuilder builds and reflows timelines; *schedule.Builder and
// *schedule.InstrumentedBuilder satisfy it.
type TimelineBuilder interface {
	Build(ctx context.Context, meals []schedule.PlannedMeal) (*schedule.Plan, error)
	Profile() schedule.Profile
	Scheduler() *schedule.Scheduler
}

// Leftovers receives intentional overproduction when a session completes.
type Leftovers interface {
	AddToInventory(ctx context.Context, userID string, cmd pantry.AddToInventoryCommand) (pantry.Item, error)
}

// Service persists sessions and applies lifecycle operations as versioned
// read-modify-writes.
type Service struct {
	store   storage.Store
	builder TimelineBuilder
	pantry  Leftovers
	events  mealprep.EventLogger
	now     func() time.Time
	newID   func() string
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the random session ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store storage.Store, builder TimelineBuilder, leftovers Leftovers, events mealprep.EventLogger, opts ...Option) *Service {
	if events == nil {
		events = mealprep.NewNoOpEventLogger()
	}
	s := &Service{
		store:   store,
		builder: builder,
		pantry:  leftovers,
		events:  events,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(userID, sessionID string) string {
	return fmt.Sprintf("sessions/%s/%s", userID, sessionID)
}

// Create builds the timeline for meals and stores a new planned session.
func (s *Service) Create(ctx context.Context, userID string, meals []schedule.PlannedMeal) (*CookingSession, error) {
	plan, err := s.builder.Build(ctx, meals)
	if err != nil {
		s.record("session_create", userID, "", "", nil, err)
		return nil, err
	}

	cs := New(s.newID(), userID, meals, plan, s.now().UTC())
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if _, err := s.store.Save(ctx, key(userID, cs.ID), data, ""); err != nil {
		s.record("session_create", userID, cs.ID, "", nil, err)
		return nil, fmt.Errorf("save session: %w", err)
	}

	slog.Info("SESSION: Created",
		"user_id", userID,
		"session_id", cs.ID,
		"meals", len(meals),
		"steps", len(cs.Timeline.Steps),
		"total_minutes", cs.Timeline.TotalMinutes,
	)
	s.record("session_create", userID, cs.ID, "", map[string]any{
		"meals":         len(meals),
		"total_minutes": cs.Timeline.TotalMinutes,
		"conflicts":     len(cs.Timeline.Conflicts),
	}, nil)
	return cs, nil
}

func (s *Service) Get(ctx context.Context, userID, sessionID string) (*CookingSession, error) {
	cs, _, err := storage.LoadJSON[CookingSession](ctx, s.store, key(userID, sessionID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// ListSessions returns every session of the user ordered by key.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]CookingSession, error) {
	keys, err := s.store.List(ctx, fmt.Sprintf("sessions/%s/", userID))
	if err != nil {
		return nil, err
	}
	out := make([]CookingSession, 0, len(keys))
	for _, k := range keys {
		cs, _, err := storage.LoadJSON[CookingSession](ctx, s.store, k)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, op, userID, sessionID, stepID string, details map[string]any, fn func(*CookingSession) error) (*CookingSession, error) {
	cs, err := storage.UpdateJSON(ctx, s.store, key(userID, sessionID),
		func() CookingSession { return CookingSession{} },
		func(cs *CookingSession) error {
			if cs.ID == "" {
				return ErrSessionNotFound
			}
			return fn(cs)
		},
	)
	s.record(op, userID, sessionID, stepID, details, err)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *Service) UpdateSessionStatus(ctx context.Context, userID, sessionID string, to Status) (*CookingSession, error) {
	return s.update(ctx, "session_status_update", userID, sessionID, "", map[string]any{"status": to},
		func(cs *CookingSession) error {
			return cs.Transition(to, s.now().UTC())
		})
}

// CompleteSession completes the session and files leftovers in the user's pantry,
// tagged with the session id.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string, leftovers []pantry.AddToInventoryCommand) (*CookingSession, error) {
	cs, err := s.UpdateSessionStatus(ctx, userID, sessionID, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if s.pantry == nil {
		return cs, nil
	}
	for _, cmd := range leftovers {
		cmd.SourceSessionID = sessionID
		if _, err := s.pantry.AddToInventory(ctx, userID, cmd); err != nil {
			return cs, fmt.Errorf("file leftover %s: %w", cmd.IngredientID, err)
		}
	}
	return cs, nil
}

func (s *Service) CompleteStep(ctx context.Context, userID, sessionID, stepID string) (*CookingSession, error) {
	return s.update(ctx, "step_complete", userID, sessionID, stepID, nil,
		func(cs *CookingSession) error {
			_, err := cs.CompleteStep(stepID, s.now().UTC())
			return err
		})
}

func (s *Service) AddTimeAdjustment(ctx context.Context, userID, sessionID, stepID string, actualMinutes int) (*CookingSession, error) {
	return s.update(ctx, "time_adjust", userID, sessionID, stepID, map[string]any{"actual_minutes": actualMinutes},
		func(cs *CookingSession) error {
			_, err := cs.AdjustTime(stepID, actualMinutes, s.builder.Scheduler(), s.builder.Profile(), s.now().UTC())
			return err
		})
}

// GetMealsForBatchCooking filters the caller's planned meals down to those in [from, to]
// that none of the user's live sessions has claimed.
func (s *Service) GetMealsForBatchCooking(ctx context.Context, userID string, meals []schedule.PlannedMeal, from, to time.Time) ([]schedule.PlannedMeal, error) {
	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return EligibleMeals(meals, sessions, from, to), nil
}

func (s *Service) record(op, userID, sessionID, stepID string, details map[string]any, err error) {
	ev := mealprep.Event{
		Operation: op,
		Timestamp: s.now().UTC(),
		UserID:    userID,
		SessionID: sessionID,
		StepID:    stepID,
		Details:   details,
	}
	if err != nil {
		ev.Error = err.Error()
		attrs := []any{"operation", op, "user_id", userID, "session_id", sessionID, "error", err}
		switch mealprep.Classify(err) {
		case mealprep.ClassState:
			slog.Info("SESSION: Request rejected", attrs...)
		case mealprep.ClassConcurrency:
			slog.Warn("SESSION: Lost update race", attrs...)
		default:
			slog.Error("SESSION: Operation failed", attrs...)
		}
	}
	if lerr := s.events.LogEvent(ev); lerr != nil {
		slog.Warn("SESSION: Failed to journal event", "operation", op, "error", lerr)
	}
}

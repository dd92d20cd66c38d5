package pantry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mealprep"
	"mealprep/storage"
)

// Service applies ledger operations to persisted pantries. Every mutation is a versioned
// read-modify-write of the user's whole inventory.
type Service struct {
	store  storage.Store
	events mealprep.EventLogger
	now    func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, events mealprep.EventLogger, opts ...Option) *Service {
	if events == nil {
		events = mealprep.NewNoOpEventLogger()
	}
	s := &Service{store: store, events: events, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(userID string) string {
	return "pantry/" + userID
}

func (s *Service) AddToInventory(ctx context.Context, userID string, cmd AddToInventoryCommand) (Item, error) {
	var item Item
	_, err := storage.UpdateJSON(ctx, s.store, key(userID), newInventory(userID), func(inv *Inventory) error {
		var err error
		item, err = inv.Add(cmd, s.now().UTC())
		return err
	})
	s.record("pantry_add", userID, map[string]any{
		"ingredient_id": cmd.IngredientID,
		"amount":        cmd.Amount,
		"unit":          cmd.Unit,
	}, err)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) ConsumeFromInventory(ctx context.Context, userID string, cmd ConsumeCommand) (Item, error) {
	var item Item
	_, err := storage.UpdateJSON(ctx, s.store, key(userID), newInventory(userID), func(inv *Inventory) error {
		var err error
		item, err = inv.Consume(cmd, s.now().UTC())
		return err
	})
	s.record("pantry_consume", userID, map[string]any{
		"ingredient_id": cmd.IngredientID,
		"amount":        cmd.Amount,
		"unit":          cmd.Unit,
	}, err)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// GetAvailableInventory returns an empty list for a user without a pantry.
func (s *Service) GetAvailableInventory(ctx context.Context, userID string) ([]Item, error) {
	inv, _, err := storage.LoadJSON[Inventory](ctx, s.store, key(userID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []Item{}, nil
		}
		return nil, err
	}
	return inv.Available(), nil
}

func (s *Service) record(op, userID string, details map[string]any, err error) {
	ev := mealprep.Event{
		Operation: op,
		Timestamp: s.now().UTC(),
		UserID:    userID,
		Details:   details,
	}
	switch mealprep.Classify(err) {
	case mealprep.ClassState:
		slog.Info("PANTRY: Request rejected", "operation", op, "user_id", userID, "reason", err)
		ev.Error = err.Error()
	case mealprep.ClassConcurrency:
		slog.Warn("PANTRY: Lost update race", "operation", op, "user_id", userID, "error", err)
		ev.Error = err.Error()
	default:
		if err != nil {
			slog.Error("PANTRY: Operation failed", "operation", op, "user_id", userID, "error", err)
			ev.Error = err.Error()
		}
	}
	if lerr := s.events.LogEvent(ev); lerr != nil {
		slog.Warn("PANTRY: Failed to journal event", "operation", op, "error", lerr)
	}
}

func newInventory(userID string) func() Inventory {
	return func() Inventory { return Inventory{UserID: userID, Items: []Item{}} }
}

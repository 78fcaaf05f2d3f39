package core

// duplicate.go implements the add-slab workflow and its duplicate handling.
//
// State transitions:
//
//	Editing --Check--> Checking --> Clear | DuplicateFound
//	Clear          --Submit--> Submitting --> Done | Failed
//	DuplicateFound --Submit(status=sent)--> Submitting (subtract) --> Done | Failed
//	DuplicateFound --Submit(other)--> Confirming --ConfirmAdd--> Submitting --> Done | Failed
//
// Each slab_id edit bumps a generation counter. A lookup only applies its
// result if no newer edit happened while it was in flight, so a slow lookup
// for "2" can never overwrite the result for "2B".

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// ErrUnsupportedResolution is returned for the "create a separate record"
// choice, which has no defined behavior.
var ErrUnsupportedResolution = errors.New("unsupported resolution: creating a duplicate slab record is not allowed")

// ErrNotConfirming is returned when a confirmation arrives without a pending duplicate.
var ErrNotConfirming = errors.New("no duplicate confirmation is pending")

// AddState is the workflow state of one add-slab attempt.
type AddState string

const (
	StateEditing        AddState = "editing"
	StateChecking       AddState = "checking"
	StateClear          AddState = "clear"
	StateDuplicateFound AddState = "duplicate_found"
	StateConfirming     AddState = "confirming"
	StateSubmitting     AddState = "submitting"
	StateDone           AddState = "done"
	StateFailed         AddState = "failed"
)

// Resolution is the user's answer to a duplicate confirmation.
type Resolution string

const (
	ResolutionAdd       Resolution = "add"
	ResolutionCreateNew Resolution = "create_new"
)

// AddForm is the add-slab form as entered.
type AddForm struct {
	SlabID         string        `json:"slab_id"`
	Family         string        `json:"family"`
	Formulation    string        `json:"formulation"`
	Version        string        `json:"version"`
	Status         slab.Status   `json:"status"`
	Category       slab.Category `json:"category"`
	Quantity       string        `json:"quantity"`
	ReceivedDate   string        `json:"received_date"`
	SentToLocation string        `json:"sent_to_location"`
	SentToDate     string        `json:"sent_to_date"`
	Notes          string        `json:"notes"`
	BoxSharedLink  string        `json:"box_shared_link"`
	ImageURL       string        `json:"image_url"`
	SKU            string        `json:"sku"`
}

// Duplicate describes the existing record an add collides with.
type Duplicate struct {
	ID       string        `json:"id"`
	SlabID   string        `json:"slab_id"`
	Category slab.Category `json:"category"`
	Quantity int           `json:"quantity"`
}

// Action is what a finished add did.
type Action string

const (
	ActionCreated           Action = "created"
	ActionAdded             Action = "added"
	ActionSubtracted        Action = "subtracted"
	ActionNeedsConfirmation Action = "needs_confirmation"
)

// Outcome reports the result of Submit or a confirmation.
type Outcome struct {
	Action    Action       `json:"action"`
	Record    *slab.Record `json:"record,omitempty"`
	Duplicate *Duplicate   `json:"duplicate,omitempty"`
}

// AddSession drives one add-slab attempt. It is safe for concurrent use.
type AddSession struct {
	store Store
	now   Clock

	mu    sync.Mutex
	state AddState
	gen   uint64
	form  AddForm
	dup   *Duplicate
	err   error
}

// NewAddSession starts a session in the Editing state.
func NewAddSession(store Store, now Clock) *AddSession {
	if now == nil {
		now = systemClock
	}
	return &AddSession{store: store, now: now, state: StateEditing}
}

// State returns the current state.
func (s *AddSession) State() AddState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duplicate returns the matched record, if any.
func (s *AddSession) Duplicate() *Duplicate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dup == nil {
		return nil
	}
	d := *s.dup
	return &d
}

// Err returns the failure that moved the session to Failed.
func (s *AddSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Edit replaces the form. A changed slab_id invalidates any lookup in
// flight and returns the session to Editing. It returns the generation a
// subsequent Check will run under.
func (s *AddSession) Edit(form AddForm) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if form.SlabID != s.form.SlabID || s.gen == 0 {
		s.gen++
		s.state = StateEditing
		s.dup = nil
	}
	s.form = form
	return s.gen
}

// EditDebounced applies an edit and schedules the duplicate lookup on d,
// so only the last of a burst of edits triggers a query.
func (s *AddSession) EditDebounced(ctx context.Context, form AddForm, d *Debouncer) {
	s.Edit(form)
	d.Trigger(func() {
		_ = s.Check(ctx)
	})
}

// Check looks up the current slab_id among active categories. The result
// is discarded if the slab_id changed while the lookup was running.
func (s *AddSession) Check(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	slabID := strings.TrimSpace(s.form.SlabID)
	s.state = StateChecking
	s.mu.Unlock()

	var (
		dup *Duplicate
		err error
	)
	if slabID != "" {
		dup, err = FindDuplicate(ctx, s.store, slabID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.state = StateEditing
		return fmt.Errorf("duplicate check: %w", err)
	}

	s.dup = dup
	if dup != nil {
		s.state = StateDuplicateFound
	} else {
		s.state = StateClear
	}
	return nil
}

// Submit acts on the form according to the current lookup result. If no
// lookup has settled yet, it runs one first.
func (s *AddSession) Submit(ctx context.Context) (Outcome, error) {
	state := s.State()
	if state != StateClear && state != StateDuplicateFound {
		if err := s.Check(ctx); err != nil {
			return Outcome{}, err
		}
	}

	s.mu.Lock()
	form := s.form
	state = s.state
	dup := s.dup
	s.mu.Unlock()

	qty, err := validateAddForm(form)
	if err != nil {
		return Outcome{}, err
	}

	switch state {
	case StateClear:
		return s.create(ctx, form, qty)

	case StateDuplicateFound:
		if form.Status == slab.StatusSent {
			return s.subtract(ctx, dup, qty)
		}
		s.mu.Lock()
		s.state = StateConfirming
		s.mu.Unlock()
		return Outcome{Action: ActionNeedsConfirmation, Duplicate: dup}, nil
	}

	return Outcome{}, fmt.Errorf("submit in state %s", state)
}

// ConfirmAdd adds the entered quantity to the pending duplicate.
func (s *AddSession) ConfirmAdd(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateConfirming || s.dup == nil {
		s.mu.Unlock()
		return Outcome{}, ErrNotConfirming
	}
	form := s.form
	dup := *s.dup
	s.state = StateSubmitting
	s.mu.Unlock()

	qty, err := validateAddForm(form)
	if err != nil {
		return Outcome{}, err
	}

	rec, err := s.store.AdjustQuantity(ctx, dup.ID, qty)
	if err != nil {
		return Outcome{}, s.fail(fmt.Errorf("add to slab %s: %w", dup.SlabID, err))
	}
	s.finish()
	return Outcome{Action: ActionAdded, Record: &rec, Duplicate: &dup}, nil
}

// ConfirmCreateNew rejects the "create a separate record" choice.
func (s *AddSession) ConfirmCreateNew(context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirming {
		return Outcome{}, ErrNotConfirming
	}
	return Outcome{}, ErrUnsupportedResolution
}

// Resolve dispatches a confirmation answer.
func (s *AddSession) Resolve(ctx context.Context, r Resolution) (Outcome, error) {
	switch r {
	case ResolutionAdd:
		return s.ConfirmAdd(ctx)
	case ResolutionCreateNew:
		return s.ConfirmCreateNew(ctx)
	default:
		return Outcome{}, ValidationError{Field: "resolution", Value: string(r), Message: "must be add or create_new"}
	}
}

func (s *AddSession) create(ctx context.Context, form AddForm, qty int) (Outcome, error) {
	s.setState(StateSubmitting)

	rec, err := s.store.Create(ctx, formRecord(form, qty, s.now()))
	if err != nil {
		return Outcome{}, s.fail(fmt.Errorf("create slab %s: %w", form.SlabID, err))
	}
	s.finish()
	return Outcome{Action: ActionCreated, Record: &rec}, nil
}

// subtract records an outbound sample against the existing slab.
func (s *AddSession) subtract(ctx context.Context, dup *Duplicate, qty int) (Outcome, error) {
	if dup.Quantity-qty < 0 {
		return Outcome{}, insufficientQuantity(dup, qty)
	}

	s.setState(StateSubmitting)

	rec, err := s.store.AdjustQuantity(ctx, dup.ID, -qty)
	if err != nil {
		if errors.Is(err, slab.ErrInsufficientQuantity) {
			s.setState(StateDuplicateFound)
			return Outcome{}, insufficientQuantity(dup, qty)
		}
		return Outcome{}, s.fail(fmt.Errorf("subtract from slab %s: %w", dup.SlabID, err))
	}
	s.finish()
	d := *dup
	return Outcome{Action: ActionSubtracted, Record: &rec, Duplicate: &d}, nil
}

func (s *AddSession) setState(st AddState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *AddSession) finish() {
	s.setState(StateDone)
}

func (s *AddSession) fail(err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.err = err
	s.mu.Unlock()
	return err
}

// FindDuplicate returns the active record with slabID, or nil.
func FindDuplicate(ctx context.Context, store Store, slabID string) (*Duplicate, error) {
	rec, found, err := store.FindOne(ctx, slab.Filter{
		SlabID:      slabID,
		MatchSlabID: true,
		Categories:  slab.ActiveCategories,
	})
	if err != nil || !found {
		return nil, err
	}
	return &Duplicate{
		ID:       rec.ID,
		SlabID:   rec.SlabID,
		Category: rec.Category,
		Quantity: rec.Quantity,
	}, nil
}

func insufficientQuantity(dup *Duplicate, qty int) error {
	return ValidationError{
		Field:   "quantity",
		Value:   fmt.Sprint(qty),
		Message: fmt.Sprintf("cannot subtract %d from slab %s: %v (only %d on hand)", qty, dup.SlabID, slab.ErrInsufficientQuantity, dup.Quantity),
	}
}

package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
	"github.com/avvvet/variables-admin/internal/adminsvc/store"
)

const (
	FieldOne = "variable_1"
	FieldTwo = "variable_2"

	// SuccessTimeout is how long the success flag stays up after a submit.
	SuccessTimeout = 3 * time.Second
)

var (
	ErrSubmitDisabled = errors.New("submit disabled: draft is empty or a submit is in flight")
	ErrUnknownField   = errors.New("unknown field")
)

// ValidationError carries a message per offending draft field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Gateway is the part of the record store the controller needs.
type Gateway interface {
	FetchLatest(ctx context.Context) (*models.Variables, error)
	Insert(ctx context.Context, in models.VariablesInput) (*models.Variables, error)
}

// Notifier is told about every record the controller created.
type Notifier interface {
	VariablesCreated(v *models.Variables)
}

type Fields struct {
	VariableOne string `json:"variable_1"`
	VariableTwo string `json:"variable_2"`
}

func (f Fields) Empty() bool {
	return f.VariableOne == "" && f.VariableTwo == ""
}

// State is a point in time copy of the controller state.
type State struct {
	Current          Fields            `json:"current"`
	Draft            Fields            `json:"draft"`
	ValidationErrors map[string]string `json:"validation_errors"`
	Loading          bool              `json:"loading"`
	Submitting       bool              `json:"submitting"`
	Error            string            `json:"error,omitempty"`
	Success          bool              `json:"success"`
	CanSubmit        bool              `json:"can_submit"`
	// Version grows with every change; a higher version is a newer state.
	Version uint64 `json:"version"`
}

// Controller holds the displayed record and the draft of the admin form.
// The mutex is never held across a gateway call.
type Controller struct {
	mu       sync.Mutex
	gw       Gateway
	clock    clock.Clock
	notifier Notifier

	listeners []func(State)
	version   uint64
	pending   *State // newest state not yet handed to the listeners
	wake      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	current          Fields
	draft            Fields
	validationErrors map[string]string
	loading          bool
	submitting       bool
	err              string
	success          bool

	successSeq   uint64
	successTimer *clock.Timer
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

func WithNotifier(n Notifier) Option {
	return func(ctl *Controller) {
		ctl.notifier = n
	}
}

func NewController(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:               gw,
		clock:            clock.New(),
		validationErrors: map[string]string{},
		wake:             make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to be called with the state after changes. Listeners
// run one at a time on a dispatch goroutine, in version order. A slow
// listener may miss intermediate states but always receives the newest one.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()

	c.startOnce.Do(func() { go c.dispatch() })
}

// Close stops the dispatch goroutine. Changes made afterwards are not
// reported.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Controller) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		st, listeners := c.pending, c.listeners
		c.pending = nil
		c.mu.Unlock()

		if st == nil {
			continue
		}
		for _, fn := range listeners {
			fn(*st)
		}
	}
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	verrs := make(map[string]string, len(c.validationErrors))
	for k, v := range c.validationErrors {
		verrs[k] = v
	}
	return State{
		Current:          c.current,
		Draft:            c.draft,
		ValidationErrors: verrs,
		Loading:          c.loading,
		Submitting:       c.submitting,
		Error:            c.err,
		Success:          c.success,
		CanSubmit:        !c.submitting && !c.draft.Empty(),
		Version:          c.version,
	}
}

// unlockAndNotify bumps the version, queues the new state for the listeners
// and releases the lock. It never waits for a listener.
func (c *Controller) unlockAndNotify() {
	c.version++
	if len(c.listeners) > 0 {
		st := c.snapshotLocked()
		c.pending = &st
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Load fetches the latest record into current. A failure only sets the
// error message; loading always ends.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.err = ""
	c.unlockAndNotify()

	rec, err := c.gw.FetchLatest(ctx)

	c.mu.Lock()
	switch {
	case err != nil:
		log.Errorf("error [Load] fetching variables: %v", err)
		c.err = err.Error()
	case rec != nil:
		c.current = Fields{VariableOne: rec.VariableOne, VariableTwo: rec.VariableTwo}
	}
	c.loading = false
	c.unlockAndNotify()

	return err
}

// Edit stores raw, capped at MaxInputLength characters, as the draft value
// of field. Sanitizing waits for Submit.
func (c *Controller) Edit(field, raw string) error {
	c.mu.Lock()
	if field != FieldOne && field != FieldTwo {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	delete(c.validationErrors, field)
	value := truncate(raw, MaxInputLength)
	if field == FieldOne {
		c.draft.VariableOne = value
	} else {
		c.draft.VariableTwo = value
	}
	c.unlockAndNotify()
	return nil
}

// ReplaceDraft stores both draft values exactly as received. Clients that
// keep their own draft use it; Submit still validates the lengths. While a
// submit is in flight the draft stays as it is and ErrSubmitDisabled is
// returned.
func (c *Controller) ReplaceDraft(d Fields) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitDisabled
	}
	delete(c.validationErrors, FieldOne)
	delete(c.validationErrors, FieldTwo)
	c.draft = d
	c.unlockAndNotify()
	return nil
}

// Submit validates and sanitizes the draft and creates a new record from it.
// It returns ErrSubmitDisabled without touching state when the draft is
// empty or another submit is in flight.
func (c *Controller) Submit(ctx context.Context) (*models.Variables, error) {
	c.mu.Lock()
	if c.submitting || c.draft.Empty() {
		c.mu.Unlock()
		return nil, ErrSubmitDisabled
	}

	if errs := validateDraft(c.draft); len(errs) > 0 {
		c.validationErrors = errs
		verr := &ValidationError{Fields: make(map[string]string, len(errs))}
		for k, v := range errs {
			verr.Fields[k] = v
		}
		c.unlockAndNotify()
		return nil, verr
	}

	c.submitting = true
	c.err = ""
	c.clearSuccessLocked()
	c.validationErrors = map[string]string{}
	in := models.VariablesInput{
		VariableOne: Sanitize(c.draft.VariableOne),
		VariableTwo: Sanitize(c.draft.VariableTwo),
	}
	c.unlockAndNotify()

	rec, err := c.gw.Insert(ctx, in)
	if err == nil && rec == nil {
		err = &store.BackendError{Op: "Insert", Message: "backend returned no record"}
	}

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		log.Errorf("error [Submit] creating record: %v", err)
		c.err = err.Error()
		c.unlockAndNotify()
		return nil, err
	}

	c.current = Fields{VariableOne: rec.VariableOne, VariableTwo: rec.VariableTwo}
	c.draft = Fields{}
	c.success = true
	c.successSeq++
	seq := c.successSeq
	c.successTimer = c.clock.AfterFunc(SuccessTimeout, func() { c.expireSuccess(seq) })
	c.unlockAndNotify()

	log.Infof("variables record %s created", rec.ID)
	if c.notifier != nil {
		c.notifier.VariablesCreated(rec)
	}
	return rec, nil
}

func (c *Controller) clearSuccessLocked() {
	c.success = false
	c.successSeq++
	if c.successTimer != nil {
		c.successTimer.Stop()
		c.successTimer = nil
	}
}

func (c *Controller) expireSuccess(seq uint64) {
	c.mu.Lock()
	if seq != c.successSeq {
		// a newer submit owns the flag
		c.mu.Unlock()
		return
	}
	c.success = false
	c.successTimer = nil
	c.unlockAndNotify()
}

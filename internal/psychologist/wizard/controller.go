// Package wizard drives the three step registration flow. The controller
// decides which fields gate each transition and only hands a fully valid
// submission to the registrar.
package wizard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MindFlow-Startup/MindFlow/internal/audit"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/metrics"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
	"github.com/MindFlow-Startup/MindFlow/pkg/requestcontext"
)

// Registrar persists a finished submission.
type Registrar interface {
	Create(ctx context.Context, sub models.Submission) (*models.Psychologist, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

const (
	actionAdvance = "advance"
	actionRetreat = "retreat"
	actionSubmit  = "submit"

	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

type Controller struct {
	validator *validation.Validator
	registrar Registrar
	logger    *slog.Logger
	metrics   *metrics.Metrics
	auditor   AuditPublisher
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *Controller) {
		c.auditor = publisher
	}
}

func NewController(validator *validation.Validator, registrar Registrar, opts ...Option) (*Controller, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if registrar == nil {
		return nil, errors.New("registrar is required")
	}
	c := &Controller{
		validator: validator,
		registrar: registrar,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start returns a fresh session positioned on the first step.
func (c *Controller) Start(ctx context.Context) State {
	return State{
		DraftID:   id.NewDraftID(),
		Step:      StepPersonal,
		UpdatedAt: requestcontext.Now(ctx),
	}
}

// SetFields merges the present patch values into the submission. Failures
// for the touched fields are cleared; nothing is validated.
func (c *Controller) SetFields(ctx context.Context, state State, patch models.Patch) (State, error) {
	if state.Submitted() {
		return state, dErrors.New(dErrors.CodeInvalidState, "registration already submitted")
	}
	next := state.clone()
	next.Submission = patch.ApplyTo(next.Submission)
	for _, f := range patch.Fields() {
		delete(next.Failures, string(f))
	}
	if len(next.Failures) == 0 {
		next.Failures = nil
	}
	next.UpdatedAt = requestcontext.Now(ctx)
	return next, nil
}

// Advance validates the current step's fields. On success it moves forward;
// otherwise the returned state stays put and carries the failures.
func (c *Controller) Advance(ctx context.Context, state State) (State, error) {
	i := indexOf(state.Step)
	if state.Step == StepReview {
		return state, dErrors.New(dErrors.CodeInvalidState, "review step can only be submitted")
	}
	if i < 0 {
		return state, dErrors.New(dErrors.CodeInvalidState, "registration already submitted")
	}

	next := state.clone()
	next.UpdatedAt = requestcontext.Now(ctx)
	result := c.validator.Validate(ctx, next.Submission, rulesFor(state.Step))
	if !result.OK() {
		next.Failures = result.Failures()
		c.record(actionAdvance, state.Step, outcomeRejected)
		return next, nil
	}

	next.Step = flow[i+1].ID
	next.Direction = DirectionForward
	next.Failures = nil
	c.record(actionAdvance, state.Step, outcomeOK)
	return next, nil
}

// Retreat moves back one step, clamped at the first. It never validates.
func (c *Controller) Retreat(ctx context.Context, state State) (State, error) {
	if state.Submitted() {
		return state, dErrors.New(dErrors.CodeInvalidState, "registration already submitted")
	}
	next := state.clone()
	if i := indexOf(state.Step); i > 0 {
		next.Step = flow[i-1].ID
	}
	next.Direction = DirectionBackward
	next.UpdatedAt = requestcontext.Now(ctx)
	c.record(actionRetreat, state.Step, outcomeOK)
	return next, nil
}

// Submit revalidates every field and, only when all pass, hands the
// submission to the registrar. Rejections move the session to the earliest
// step owning a failing field. Registrar failures other than validation and
// conflict are returned as errors with the state unchanged.
func (c *Controller) Submit(ctx context.Context, state State) (State, error) {
	if state.Step != StepReview {
		return state, dErrors.New(dErrors.CodeInvalidState, "submit is only allowed from the review step")
	}

	next := state.clone()
	next.UpdatedAt = requestcontext.Now(ctx)
	result := c.validator.Validate(ctx, next.Submission, validation.All())
	if !result.OK() {
		c.reject(&next, result.Failures())
		return next, nil
	}

	record, err := c.registrar.Create(ctx, next.Submission)
	if err != nil {
		derr, ok := dErrors.As(err)
		if ok && (derr.Code == dErrors.CodeValidation || derr.Code == dErrors.CodeConflict) && len(derr.Fields) > 0 {
			c.reject(&next, derr.Fields)
			return next, nil
		}
		c.record(actionSubmit, state.Step, "error")
		return state, err
	}

	recordID := record.ID
	next.Step = StepSubmitted
	next.Direction = DirectionForward
	next.Submission = models.Submission{}
	next.Failures = nil
	next.RecordID = &recordID
	c.record(actionSubmit, state.Step, outcomeOK)
	c.emitSubmitted(ctx, record)
	c.logger.InfoContext(ctx, "wizard submitted",
		"request_id", requestcontext.RequestID(ctx),
		"draft_id", state.DraftID,
		"psychologist_id", recordID,
	)
	return next, nil
}

// Reset discards the session's progress and starts over under the same
// draft id.
func (c *Controller) Reset(ctx context.Context, state State) State {
	return State{
		DraftID:   state.DraftID,
		Step:      StepPersonal,
		UpdatedAt: requestcontext.Now(ctx),
	}
}

func (c *Controller) reject(next *State, failures map[string]string) {
	fields := make([]string, 0, len(failures))
	for f := range failures {
		fields = append(fields, f)
	}
	next.Failures = failures
	next.Step = stepOwning(fields)
	next.Direction = DirectionBackward
	c.record(actionSubmit, StepReview, outcomeRejected)
}

func (c *Controller) emitSubmitted(ctx context.Context, record *models.Psychologist) {
	if c.auditor == nil {
		return
	}
	err := c.auditor.Emit(ctx, audit.Event{
		Action:         audit.ActionWizardSubmitted,
		Timestamp:      requestcontext.Now(ctx),
		PsychologistID: record.ID.String(),
		CRP:            record.CRP,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to emit audit event",
			"action", audit.ActionWizardSubmitted,
			"psychologist_id", record.ID,
			"error", err,
		)
	}
}

func (c *Controller) record(action string, step Step, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordWizardTransition(action, string(step), outcome)
	}
}

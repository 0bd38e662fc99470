package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MindFlow-Startup/MindFlow/internal/audit"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/crp"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/metrics"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
	"github.com/MindFlow-Startup/MindFlow/pkg/requestcontext"
)

const tracerName = "github.com/MindFlow-Startup/MindFlow/internal/psychologist/service"

// Store persists directory records. Implementations return
// sentinel.ErrNotFound for unknown ids and sentinel.ErrConflict when the
// email is already taken by another record.
type Store interface {
	Create(ctx context.Context, p *models.Psychologist) error
	List(ctx context.Context) ([]*models.Psychologist, error)
	FindByID(ctx context.Context, id id.PsychologistID) (*models.Psychologist, error)
	Update(ctx context.Context, p *models.Psychologist) error
	Delete(ctx context.Context, id id.PsychologistID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the registration service. It holds no mutable state between
// calls; every side effect goes through the store or the audit publisher.
type Service struct {
	store          Store
	validator      *validation.Validator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. The store and validator are required.
func New(store Store, validator *validation.Validator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("psychologist store is required")
	}
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	s := &Service{
		store:     store,
		validator: validator,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates every field, normalizes the submission and persists it.
func (s *Service) Create(ctx context.Context, sub models.Submission) (*models.Psychologist, error) {
	ctx, span := s.tracer.Start(ctx, "psychologist.Create")
	defer span.End()
	start := time.Now()
	defer s.observeCreate(start)

	result := s.validator.Validate(ctx, sub, validation.All())
	if !result.OK() {
		return nil, s.validationError(ctx, span, result)
	}

	now := requestcontext.Now(ctx)
	birthDate, _ := validation.ParseBirthDate(sub.BirthDate)
	record, err := models.NewPsychologist(
		id.NewPsychologistID(),
		crp.Normalize(sub.CRP).String(),
		validation.NormalizeEmail(sub.Email),
		validation.NormalizeFullName(sub.FullName),
		birthDate,
		s.validator.NormalizeSpecialties(sub.Specialties),
		now,
	)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build psychologist"))
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incrementConflicts()
			return nil, s.fail(span, emailConflict())
		}
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create psychologist"))
	}

	span.SetAttributes(attribute.String("psychologist.id", record.ID.String()))
	s.emitAudit(ctx, audit.ActionPsychologistRegistered, record, nil)
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.logger.InfoContext(ctx, "psychologist registered",
		"request_id", requestcontext.RequestID(ctx),
		"psychologist_id", record.ID,
		"crp", record.CRP,
	)
	return record, nil
}

// List returns every stored record.
func (s *Service) List(ctx context.Context) ([]*models.Psychologist, error) {
	ctx, span := s.tracer.Start(ctx, "psychologist.List")
	defer span.End()

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list psychologists"))
	}
	span.SetAttributes(attribute.Int("psychologist.count", len(records)))
	return records, nil
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, recordID id.PsychologistID) (*models.Psychologist, error) {
	ctx, span := s.tracer.Start(ctx, "psychologist.Get")
	defer span.End()

	if recordID.IsNil() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeBadRequest, "id is required"))
	}
	record, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, s.fail(span, translateLookup(err))
	}
	return record, nil
}

// Update applies the supplied fields only. Only those fields are validated and
// nothing is written unless all of them pass.
func (s *Service) Update(ctx context.Context, recordID id.PsychologistID, patch models.Patch) (*models.Psychologist, error) {
	ctx, span := s.tracer.Start(ctx, "psychologist.Update")
	defer span.End()

	if recordID.IsNil() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeBadRequest, "id is required"))
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, s.fail(span, dErrors.New(dErrors.CodeBadRequest, "at least one field must be supplied"))
	}

	existing, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, s.fail(span, translateLookup(err))
	}

	result := s.validator.Validate(ctx, patch.ApplyTo(models.Submission{}), validation.Only(fields...))
	if !result.OK() {
		return nil, s.validationError(ctx, span, result)
	}

	updated := existing.Clone()
	s.applyPatch(updated, patch)
	updated.UpdatedAt = requestcontext.Now(ctx)
	if err := updated.CheckInvariants(); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "updated psychologist violates invariants"))
	}

	if err := s.store.Update(ctx, updated); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, s.fail(span, dErrors.New(dErrors.CodeNotFound, "psychologist not found"))
		case errors.Is(err, sentinel.ErrConflict):
			s.incrementConflicts()
			return nil, s.fail(span, emailConflict())
		default:
			return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update psychologist"))
		}
	}

	changed := make([]string, len(fields))
	for i, f := range fields {
		changed[i] = string(f)
	}
	s.emitAudit(ctx, audit.ActionPsychologistUpdated, updated, changed)
	if s.metrics != nil {
		s.metrics.IncrementUpdated()
	}
	s.logger.InfoContext(ctx, "psychologist updated",
		"request_id", requestcontext.RequestID(ctx),
		"psychologist_id", updated.ID,
		"fields", changed,
	)
	return updated, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, recordID id.PsychologistID) error {
	ctx, span := s.tracer.Start(ctx, "psychologist.Delete")
	defer span.End()

	if recordID.IsNil() {
		return s.fail(span, dErrors.New(dErrors.CodeBadRequest, "id is required"))
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.fail(span, dErrors.New(dErrors.CodeNotFound, "psychologist not found"))
		}
		return s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete psychologist"))
	}

	s.emitAudit(ctx, audit.ActionPsychologistDeleted, &models.Psychologist{ID: recordID}, nil)
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	s.logger.InfoContext(ctx, "psychologist deleted",
		"request_id", requestcontext.RequestID(ctx),
		"psychologist_id", recordID,
	)
	return nil
}

func (s *Service) applyPatch(p *models.Psychologist, patch models.Patch) {
	if patch.CRP != nil {
		p.CRP = crp.Normalize(*patch.CRP).String()
	}
	if patch.Email != nil {
		p.Email = validation.NormalizeEmail(*patch.Email)
	}
	if patch.FullName != nil {
		p.FullName = validation.NormalizeFullName(*patch.FullName)
	}
	if patch.BirthDate != nil {
		p.BirthDate, _ = validation.ParseBirthDate(*patch.BirthDate)
	}
	if patch.Specialties != nil {
		p.Specialties = s.validator.NormalizeSpecialties(*patch.Specialties)
	}
}

func (s *Service) validationError(ctx context.Context, span trace.Span, result validation.Result) error {
	failing := result.FailingFields()
	names := make([]string, len(failing))
	for i, f := range failing {
		names[i] = string(f)
	}
	if s.metrics != nil {
		s.metrics.RecordValidationFailures(names)
	}
	s.logger.InfoContext(ctx, "psychologist submission rejected",
		"request_id", requestcontext.RequestID(ctx),
		"fields", names,
	)
	return s.fail(span, dErrors.Validation("invalid psychologist data", result.Failures()))
}

func (s *Service) fail(span trace.Span, err *dErrors.Error) error {
	span.SetStatus(codes.Error, string(err.Code))
	if err.Code == dErrors.CodeInternal {
		span.RecordError(err)
	}
	return err
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, p *models.Psychologist, fields []string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:         action,
		Timestamp:      requestcontext.Now(ctx),
		PsychologistID: p.ID.String(),
		CRP:            p.CRP,
		Fields:         fields,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"psychologist_id", p.ID,
			"error", err,
		)
	}
}

func (s *Service) observeCreate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCreate(start)
	}
}

func (s *Service) incrementConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementConflicts()
	}
}

func translateLookup(err error) *dErrors.Error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "psychologist not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load psychologist")
}

func emailConflict() *dErrors.Error {
	return &dErrors.Error{
		Code:    dErrors.CodeConflict,
		Message: "email is already registered",
		Fields:  map[string]string{string(models.FieldEmail): "email is already registered"},
	}
}

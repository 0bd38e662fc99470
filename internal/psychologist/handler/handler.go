// Package handler exposes the directory and the registration wizard over
// HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/crp"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard/draft"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/httputil"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
	"github.com/MindFlow-Startup/MindFlow/pkg/requestcontext"
)

// Service is the registration service as seen by the transport.
type Service interface {
	Create(ctx context.Context, sub models.Submission) (*models.Psychologist, error)
	List(ctx context.Context) ([]*models.Psychologist, error)
	Get(ctx context.Context, recordID id.PsychologistID) (*models.Psychologist, error)
	Update(ctx context.Context, recordID id.PsychologistID, patch models.Patch) (*models.Psychologist, error)
	Delete(ctx context.Context, recordID id.PsychologistID) error
}

// DraftStore keeps wizard sessions between requests. Lock serializes writers
// of one draft and fails with sentinel.ErrConflict while it is held.
type DraftStore interface {
	Save(ctx context.Context, state wizard.State) error
	Load(ctx context.Context, draftID id.DraftID) (wizard.State, error)
	Delete(ctx context.Context, draftID id.DraftID) error
	Lock(ctx context.Context, draftID id.DraftID) (draft.Unlock, error)
}

type Handler struct {
	service   Service
	wizard    *wizard.Controller
	drafts    DraftStore
	validator *validation.Validator
	logger    *slog.Logger
}

// New creates a Handler. The wizard and drafts may be nil, in which case the
// wizard routes are not registered.
func New(service Service, validator *validation.Validator, controller *wizard.Controller, drafts DraftStore, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		wizard:    controller,
		drafts:    drafts,
		validator: validator,
		logger:    logger,
	}
}

// Register registers the directory routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.handleCreate)
	r.Route("/psychologists", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Get("/{id}", h.handleGet)
	})
	r.Get("/specialties", h.handleSpecialties)
	r.Get("/crp/regions", h.handleRegions)

	if h.wizard != nil && h.drafts != nil {
		r.Route("/wizard", func(r chi.Router) {
			r.Post("/", h.handleWizardStart)
			r.Get("/{draftID}", h.handleWizardGet)
			r.Patch("/{draftID}", h.handleWizardSetFields)
			r.Delete("/{draftID}", h.handleWizardDiscard)
			r.Post("/{draftID}/advance", h.handleWizardAdvance)
			r.Post("/{draftID}/retreat", h.handleWizardRetreat)
			r.Post("/{draftID}/submit", h.handleWizardSubmit)
			r.Post("/{draftID}/reset", h.handleWizardReset)
		})
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Create(ctx, req.Submission())
	if err != nil {
		h.writeError(ctx, w, err, "failed to register psychologist")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPsychologistResponse(record))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.List(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list psychologists")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPsychologistList(records))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := parseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid psychologist id")
		return
	}
	record, err := h.service.Get(ctx, recordID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load psychologist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPsychologistResponse(record))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	recordID, _ := parseRecordID(req.ID)

	record, err := h.service.Update(ctx, recordID, req.Patch())
	if err != nil {
		h.writeError(ctx, w, err, "failed to update psychologist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPsychologistResponse(record))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DeleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	recordID, _ := parseRecordID(req.ID)

	if err := h.service.Delete(ctx, recordID); err != nil {
		h.writeError(ctx, w, err, "failed to delete psychologist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "psychologist deleted"})
}

func (h *Handler) handleSpecialties(w http.ResponseWriter, _ *http.Request) {
	entries := []string{}
	if vocab := h.validator.Vocabulary(); vocab != nil {
		entries = vocab.Entries()
	}
	httputil.WriteJSON(w, http.StatusOK, SpecialtiesResponse{
		Specialties: entries,
		Restricted:  h.validator.Restricted(),
	})
}

func (h *Handler) handleRegions(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RegionsResponse{Regions: crp.Regions()})
}

// writeError logs the failure at a level matching its class and renders it.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		err = dErrors.New(dErrors.CodeNotFound, "not found")
	}
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.InfoContext(ctx, msg,
			"request_id", requestID,
			"code", de.Code,
			"error", err,
		)
	} else {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

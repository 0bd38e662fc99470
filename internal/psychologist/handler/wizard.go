package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/httputil"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
	"github.com/MindFlow-Startup/MindFlow/pkg/requestcontext"
)

func (h *Handler) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := h.wizard.Start(ctx)
	if err := h.drafts.Save(ctx, state); err != nil {
		h.writeError(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save draft"), "failed to start wizard")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toWizardResponse(state))
}

func (h *Handler) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, err := parseDraftID(chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid draft id")
		return
	}
	state, err := h.drafts.Load(ctx, draftID)
	if err != nil {
		h.writeError(ctx, w, draftError(err), "failed to load draft")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWizardResponse(state))
}

func (h *Handler) handleWizardSetFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[WizardFieldsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.transition(w, r, func(state wizard.State) (wizard.State, error) {
		return h.wizard.SetFields(ctx, state, req.Patch())
	})
}

func (h *Handler) handleWizardAdvance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(state wizard.State) (wizard.State, error) {
		return h.wizard.Advance(r.Context(), state)
	})
}

func (h *Handler) handleWizardRetreat(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(state wizard.State) (wizard.State, error) {
		return h.wizard.Retreat(r.Context(), state)
	})
}

func (h *Handler) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(state wizard.State) (wizard.State, error) {
		return h.wizard.Submit(r.Context(), state)
	})
}

func (h *Handler) handleWizardReset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(state wizard.State) (wizard.State, error) {
		return h.wizard.Reset(r.Context(), state), nil
	})
}

func (h *Handler) handleWizardDiscard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, err := parseDraftID(chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid draft id")
		return
	}
	unlock, err := h.drafts.Lock(ctx, draftID)
	if err != nil {
		h.writeError(ctx, w, lockError(err), "failed to lock draft")
		return
	}
	defer unlock()

	if err := h.drafts.Delete(ctx, draftID); err != nil {
		h.writeError(ctx, w, draftError(err), "failed to discard draft")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "draft discarded"})
}

// transition runs one controller step under the draft lock. The draft is
// loaded only after the lock is held, so overlapping requests for one draft
// never act on the same snapshot. Field failures are part of the state and
// still answer 200.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, step func(wizard.State) (wizard.State, error)) {
	ctx := r.Context()
	draftID, err := parseDraftID(chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid draft id")
		return
	}
	unlock, err := h.drafts.Lock(ctx, draftID)
	if err != nil {
		h.writeError(ctx, w, lockError(err), "failed to lock draft")
		return
	}
	defer unlock()

	state, err := h.drafts.Load(ctx, draftID)
	if err != nil {
		h.writeError(ctx, w, draftError(err), "failed to load draft")
		return
	}
	next, err := step(state)
	if err != nil {
		h.writeError(ctx, w, err, "wizard transition rejected")
		return
	}
	if err := h.drafts.Save(ctx, next); err != nil {
		h.writeError(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save draft"), "failed to save draft")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWizardResponse(next))
}

func parseDraftID(raw string) (id.DraftID, error) {
	draftID, err := id.ParseDraftID(raw)
	if err != nil {
		return id.DraftID{}, dErrors.New(dErrors.CodeBadRequest, "draft id is invalid")
	}
	return draftID, nil
}

func draftError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "draft not found or expired")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "draft store failure")
}

func lockError(err error) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "draft is being updated by another request")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "draft store failure")
}

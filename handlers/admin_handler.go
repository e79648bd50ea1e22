package handlers

import (
	"errors"
	"net/http"

	"github.com/cloutleague/tournament-engine/services"
)

// AdminHandler exposes manual triggers for operations the schedulers normally
// run on their own. Useful for support and for forcing a transition without
// waiting for the next sweep.
type AdminHandler struct {
	ingestionService services.IngestionService
	lifecycleService services.LifecycleService
}

func NewAdminHandler(is services.IngestionService, ls services.LifecycleService) *AdminHandler {
	return &AdminHandler{
		ingestionService: is,
		lifecycleService: ls,
	}
}

// SyncQueueHandler handles POST /admin/tournaments/{tournamentID}/sync-queue
func (h *AdminHandler) SyncQueueHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ingestionService.SyncQueue(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "queue synced"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CalculateHandler handles POST /admin/tournaments/{tournamentID}/calculate
func (h *AdminHandler) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.lifecycleService.CalculateWinners(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "winners calculated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DistributeHandler handles POST /admin/tournaments/{tournamentID}/distribute
func (h *AdminHandler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.lifecycleService.DistributePrizes(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "prizes distributed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PollHandler handles POST /admin/ingestion/poll
func (h *AdminHandler) PollHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestionService.PollNext(r.Context()); err != nil {
		if errors.Is(err, services.ErrNothingToPoll) {
			if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "nothing to poll"}, nil); err != nil {
				serverErrorResponse(w, r, err)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "polled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/luckypool/go/internal/countdown"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
	"github.com/rs/zerolog/log"
)

// PoolView is a pool with the facts the presentation layer renders
type PoolView struct {
	models.LotteryPool
	Category           models.PoolCategory `json:"category"`
	ProgressPercentage float64             `json:"progress_percentage"`
	RemainingTickets   int                 `json:"remaining_tickets"`
	IsPurchasable      bool                `json:"is_purchasable"`
	Countdown          countdown.State     `json:"countdown"`
}

// NewPoolView derives the view of p, categorized among all pools
func NewPoolView(p models.LotteryPool, all []models.LotteryPool, rules pool.Rules, now time.Time) (PoolView, error) {
	progress, err := pool.ProgressPercentage(p)
	if err != nil {
		return PoolView{}, err
	}
	category, _ := pool.CategoryOf(all, p.ID, rules)
	return PoolView{
		LotteryPool:        p,
		Category:           category,
		ProgressPercentage: progress,
		RemainingTickets:   pool.RemainingTickets(p),
		IsPurchasable:      pool.IsPurchasable(p),
		Countdown:          countdown.Remaining(p.EndTime, now),
	}, nil
}

// StateHandler handles HTTP requests for pool state
type StateHandler struct {
	app PoolApp
}

// NewStateHandler creates a new state handler
func NewStateHandler(app PoolApp) *StateHandler {
	return &StateHandler{app: app}
}

// RegisterStateRoutes registers the REST routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/pools", h.HandleListPools)
	mux.HandleFunc("GET /api/pools/categories", h.HandleCategories)
	mux.HandleFunc("GET /api/pools/summary", h.HandleSummary)
	mux.HandleFunc("GET /api/pools/{id}", h.HandleGetPool)
}

// HandleListPools handles GET /api/pools
func (h *StateHandler) HandleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.app.ListPools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	now := h.app.Now()
	views := make([]PoolView, 0, len(pools))
	for _, p := range pools {
		view, err := NewPoolView(p, pools, h.app.Rules(), now)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetPool handles GET /api/pools/{id}
func (h *StateHandler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.poolView(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCategories handles GET /api/pools/categories
func (h *StateHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.app.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleSummary handles GET /api/pools/summary
func (h *StateHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.app.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *StateHandler) poolView(r *http.Request, id string) (PoolView, error) {
	p, err := h.app.GetPool(r.Context(), id)
	if err != nil {
		return PoolView{}, err
	}
	pools, err := h.app.ListPools(r.Context())
	if err != nil {
		return PoolView{}, err
	}
	return NewPoolView(*p, pools, h.app.Rules(), h.app.Now())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pool.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrNotPurchasable):
		return http.StatusConflict
	case errors.Is(err, pool.ErrInvalidPool):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errMissingPoolID is returned when a request names no pool
var errMissingPoolID = fmt.Errorf("%w: pool_id is required", pool.ErrInvalidPool)

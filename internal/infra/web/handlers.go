package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/infra/logging"
	"restaurant-loyalty/internal/infra/metrics"
	red "restaurant-loyalty/internal/infra/redis"
)

// ---- shared plumbing ----

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeDomainError maps the business error taxonomy onto HTTP statuses.
// ErrStoreUnavailable stays a 503 with a generic body; nothing driver-level
// reaches the wire. Infrastructure failures are logged with the
// request-scoped ids before the response goes out.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrReadDatabaseRow) {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("storage failure")
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid argument"})
	case errors.Is(err, domain.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "out of stock"})
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "insufficient balance"})
	case errors.Is(err, domain.ErrInvalidCode):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown code"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotActivated):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "not activated"})
	case errors.Is(err, domain.ErrExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: "code expired"})
	case errors.Is(err, domain.ErrAlreadyActivated):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already activated"})
	case errors.Is(err, domain.ErrFinalized):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "redemption finalized"})
	case errors.Is(err, domain.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many attempts"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	}
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

// ---- reward catalog ----

type rewardCreateRequest struct {
	RestaurantID   string `json:"restaurant_id"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	PointsRequired int    `json:"points_required"`
	Stock          *int   `json:"stock"`
}

func (s *Server) handleRewardCreate(w http.ResponseWriter, r *http.Request) {
	var req rewardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	item, err := s.catalogUC.Create(r.Context(), req.RestaurantID, model.RewardCategory(req.Category), req.Description, req.PointsRequired, req.Stock)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRewardList(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	items, err := s.catalogUC.List(r.Context(), r.URL.Query().Get("restaurant_id"), page, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.RewardItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRewardGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalogUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type rewardPatchRequest struct {
	Category       *string `json:"category"`
	Description    *string `json:"description"`
	PointsRequired *int    `json:"points_required"`
	IsActive       *bool   `json:"is_active"`
}

func (s *Server) handleRewardPatch(w http.ResponseWriter, r *http.Request) {
	var req rewardPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	patch := model.RewardItemPatch{
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		IsActive:       req.IsActive,
	}
	if req.Category != nil {
		c := model.RewardCategory(*req.Category)
		patch.Category = &c
	}
	item, err := s.catalogUC.Patch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRewardDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalogUC.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type restockRequest struct {
	Stock *int `json:"stock"`
}

func (s *Server) handleRewardRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	item, err := s.catalogUC.Restock(r.Context(), chi.URLParam(r, "id"), req.Stock)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ---- balances ----

type earnRequest struct {
	CustomerID string `json:"customer_id"`
	Points     int    `json:"points"`
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req earnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	b, err := s.balanceUC.Earn(r.Context(), claims.RestaurantID, req.CustomerID, req.Points)
	if err != nil {
		metrics.IncBalanceAdjustment("earn", "refused")
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncBalanceAdjustment("earn", "applied")
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBalanceGet(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	customerID := chi.URLParam(r, "customerID")
	restaurantID := claims.RestaurantID
	switch claims.Role {
	case RoleCustomer:
		if claims.CustomerID != customerID {
			s.writeDomainError(w, r, domain.ErrForbidden)
			return
		}
		restaurantID = r.URL.Query().Get("restaurant_id")
	}
	b, err := s.balanceUC.Get(r.Context(), restaurantID, customerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- redemptions ----

type redemptionCreateRequest struct {
	RewardItemID string `json:"reward_item_id"`
}

func (s *Server) handleRedemptionCreate(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req redemptionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	created, err := s.redemptionUC.Create(r.Context(), claims.CustomerID, req.RewardItemID)
	if err != nil {
		metrics.IncRedemptionFailure("create", reasonOf(err))
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncRedemptionTransition(model.RedemptionStatusPending)
	metrics.IncBalanceAdjustment("spend", "applied")
	writeJSON(w, http.StatusCreated, created)
}

// handleRedemptionActivate performs the ownership check the workflow expects
// from its caller, then activates.
func (s *Server) handleRedemptionActivate(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")
	r = r.WithContext(logging.WithRedemptionID(r.Context(), id))

	existing, err := s.redemptionUC.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if existing.CustomerID != claims.CustomerID {
		s.writeDomainError(w, r, domain.ErrForbidden)
		return
	}

	activated, err := s.redemptionUC.Activate(r.Context(), id)
	if err != nil {
		metrics.IncRedemptionFailure("activate", reasonOf(err))
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncRedemptionTransition(model.RedemptionStatusActivated)
	writeJSON(w, http.StatusOK, activated)
}

type completeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRedemptionComplete(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	key := red.CompleteAttemptKey(claims.RestaurantID, claims.Subject)
	allowed, err := s.limiter.Allow(r.Context(), key, s.loyaltyCfg.CompleteAttempts, s.loyaltyCfg.CompleteWindow)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
	} else if !allowed {
		s.writeDomainError(w, r, domain.ErrRateLimited)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	completed, err := s.redemptionUC.Complete(r.Context(), claims.RestaurantID, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrExpired) {
			metrics.IncRedemptionTransition(model.RedemptionStatusExpired)
		}
		metrics.IncRedemptionFailure("complete", reasonOf(err))
		s.writeDomainError(w, r, err)
		return
	}
	metrics.IncRedemptionTransition(model.RedemptionStatusCompleted)
	writeJSON(w, http.StatusOK, completed)
}

func (s *Server) handleRedemptionList(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	customerID := r.URL.Query().Get("customer_id")
	if claims.Role == RoleCustomer {
		customerID = claims.CustomerID
	}

	var statuses []model.RedemptionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, model.RedemptionStatus(strings.TrimSpace(s)))
		}
	}

	page, limit := pageParams(r)
	out, err := s.redemptionUC.List(r.Context(), customerID, statuses, page, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if out == nil {
		out = []*model.Redemption{}
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- stats ----

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	restaurantID := claims.RestaurantID
	if restaurantID == "" {
		restaurantID = r.URL.Query().Get("restaurant_id")
	}

	counts, err := s.redemptionUC.CountByStatus(r.Context(), restaurantID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	liability, err := s.balanceUC.Liability(r.Context(), restaurantID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	metrics.SetRedemptionsByStatus(restaurantID, counts)
	metrics.SetPointsLiability(restaurantID, liability)

	writeJSON(w, http.StatusOK, struct {
		RestaurantID    string                           `json:"restaurant_id"`
		Redemptions     map[model.RedemptionStatus]int   `json:"redemptions_by_status"`
		PointsLiability int                              `json:"points_liability"`
	}{
		RestaurantID:    restaurantID,
		Redemptions:     counts,
		PointsLiability: liability,
	})
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotActivated):
		return "not_activated"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrAlreadyActivated):
		return "already_activated"
	case errors.Is(err, domain.ErrFinalized):
		return "finalized"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "store"
	}
}

package handler

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/bidding"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/optimization"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

// CycleEngine is the part of the orchestrator the cycle API drives.
type CycleEngine interface {
	AdvancePhase(ctx context.Context, cycleID, target string) (*models.Cycle, error)
	ComputeDishScores(ctx context.Context, cycleID string) ([]optimization.Result, error)
	ScoreBids(ctx context.Context, cycleID string) (bidding.Result, error)
	MatchSuppliers(ctx context.Context, cycleID string) (sourcing.Result, error)
}

type CycleHandler struct {
	Repo   repository.Repository
	Engine CycleEngine
	Logger *zap.Logger
}

func (h *CycleHandler) Register(r gin.IRouter) {
	g := r.Group("/api/v1/cycles")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/dishes", h.dishes)
	g.GET("/:id/bids", h.bids)
	g.GET("/:id/purchase-orders", h.purchaseOrders)
	g.GET("/:id/transitions", h.transitions)
	g.POST("/:id/advance", h.advance)
	g.POST("/:id/dish-scores", h.computeDishScores)
	g.POST("/:id/score-bids", h.scoreBids)
	g.POST("/:id/match-suppliers", h.matchSuppliers)
}

type cycleView struct {
	models.Cycle
	NextPhases []string `json:"next_phases"`
}

func newCycleView(c models.Cycle) cycleView {
	return cycleView{Cycle: c, NextPhases: orchestrator.NextPhases(c.Phase)}
}

// @Summary List cycles
// @Tags cycles
// @Param zone_id query string false "zone id"
// @Param phase query string false "phase"
// @Param since query string false "first date (YYYY-MM-DD)"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param order_by query string false "date|created_at|phase"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles [get]
func (h *CycleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit, offset := pageQuery(c, 50, 500)
	phase := strQueryPtr(c, "phase")
	if phase != nil {
		p, err := orchestrator.ParsePhase(*phase)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		phase = &p
	}
	params := repository.ListCyclesParams{
		Limit:  limit,
		Offset: offset,
		ZoneID: strQueryPtr(c, "zone_id"),
		Phase:  phase,
		Since:  strQueryPtr(c, "since"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"date":       "date",
			"created_at": "created_at",
			"phase":      "phase",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListCycles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]cycleView, 0, len(items))
	for _, it := range items {
		out = append(out, newCycleView(it))
	}
	Ok(c, out, pageMeta(limit, offset, len(out)))
}

// @Summary Get cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/cycles/{id} [get]
func (h *CycleHandler) get(c *gin.Context) {
	cycle, ok := h.loadCycle(c)
	if !ok {
		return
	}
	Ok(c, newCycleView(*cycle), nil)
}

// @Summary List dishes of a cycle, best ranked first
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles/{id}/dishes [get]
func (h *CycleHandler) dishes(c *gin.Context) {
	cycle, ok := h.loadCycle(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListDishesByCycle(c.Request.Context(), cycle.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	sortDishes(items)
	Ok(c, items, nil)
}

// @Summary List bids of a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Param status query string false "PENDING|WON|LOST"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles/{id}/bids [get]
func (h *CycleHandler) bids(c *gin.Context) {
	cycle, ok := h.loadCycle(c)
	if !ok {
		return
	}
	var status *string
	if v := strQueryPtr(c, "status"); v != nil {
		s := strings.ToUpper(*v)
		status = &s
	}
	items, err := h.Repo.ListBidsByCycle(c.Request.Context(), cycle.ID, status)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary List purchase orders of a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles/{id}/purchase-orders [get]
func (h *CycleHandler) purchaseOrders(c *gin.Context) {
	cycle, ok := h.loadCycle(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListPurchaseOrdersByCycle(c.Request.Context(), cycle.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary List phase transition attempts of a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles/{id}/transitions [get]
func (h *CycleHandler) transitions(c *gin.Context) {
	cycle, ok := h.loadCycle(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListPhaseTransitions(c.Request.Context(), cycle.ID, limitQuery(c, 100, 1000))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type advanceRequest struct {
	Target string `json:"target" binding:"required"`
}

// @Summary Advance a cycle to the next phase
// @Tags cycles
// @Param id path string true "cycle id"
// @Param body body advanceRequest true "target phase"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/v1/cycles/{id}/advance [post]
func (h *CycleHandler) advance(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	cycle, err := h.Engine.AdvancePhase(c.Request.Context(), c.Param("id"), req.Target)
	if err != nil {
		h.logger().Info("advance rejected",
			zap.String("cycle_id", c.Param("id")),
			zap.String("target", req.Target),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	Ok(c, newCycleView(*cycle), nil)
}

// @Summary Recompute the dish ranking of a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Router /api/v1/cycles/{id}/dish-scores [post]
func (h *CycleHandler) computeDishScores(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	res, err := h.Engine.ComputeDishScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Score the pending bids of a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/v1/cycles/{id}/score-bids [post]
func (h *CycleHandler) scoreBids(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	res, err := h.Engine.ScoreBids(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Match suppliers and create purchase orders for a cycle
// @Tags cycles
// @Param id path string true "cycle id"
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/v1/cycles/{id}/match-suppliers [post]
func (h *CycleHandler) matchSuppliers(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	res, err := h.Engine.MatchSuppliers(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *CycleHandler) loadCycle(c *gin.Context) (*models.Cycle, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid cycle id", nil)
		return nil, false
	}
	cycle, err := h.Repo.GetCycle(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if cycle == nil {
		Error(c, http.StatusNotFound, "cycle not found", nil)
		return nil, false
	}
	return cycle, true
}

// sortDishes orders by optimization score, highest first. Unscored dishes
// go last.
func sortDishes(items []models.Dish) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].OptimizationScore, items[j].OptimizationScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func (h *CycleHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

type ZoneHandler struct {
	Repo repository.Repository
}

func (h *ZoneHandler) Register(r gin.IRouter) {
	g := r.Group("/api/v1/zones")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/restaurants", h.restaurants)
}

// @Summary List zones
// @Tags zones
// @Param active query bool false "only active zones"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/zones [get]
func (h *ZoneHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit, offset := pageQuery(c, 100, 500)
	active := boolQueryPtr(c, "active")
	items, err := h.Repo.ListZones(c.Request.Context(), repository.ListZonesParams{
		Limit:      limit,
		Offset:     offset,
		ActiveOnly: active != nil && *active,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(limit, offset, len(items)))
}

type zoneView struct {
	models.Zone
	Members int64 `json:"members"`
}

// @Summary Get zone
// @Tags zones
// @Param id path string true "zone id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/zones/{id} [get]
func (h *ZoneHandler) get(c *gin.Context) {
	zone, ok := h.loadZone(c)
	if !ok {
		return
	}
	members, err := h.Repo.CountZoneMembers(c.Request.Context(), zone.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, zoneView{Zone: *zone, Members: members}, nil)
}

// @Summary List the active restaurants of a zone
// @Tags zones
// @Param id path string true "zone id"
// @Success 200 {object} apiResponse
// @Router /api/v1/zones/{id}/restaurants [get]
func (h *ZoneHandler) restaurants(c *gin.Context) {
	zone, ok := h.loadZone(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListRestaurantsByZone(c.Request.Context(), zone.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *ZoneHandler) loadZone(c *gin.Context) (*models.Zone, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	zone, err := h.Repo.GetZone(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if zone == nil {
		Error(c, http.StatusNotFound, "zone not found", nil)
		return nil, false
	}
	return zone, true
}

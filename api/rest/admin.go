package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/city"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/war"
	"github.com/hellasmmo/server/game/world"
	"go.uber.org/zap"
)

// Tickers lists scheduled tickers. *scheduler.Scheduler satisfies it.
type Tickers interface {
	ListTickers() []string
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	sim     *world.Simulation
	roster  *world.Roster
	groups  *party.Manager
	wars    *war.Ledger
	cities  *city.Registry
	tickers Tickers
	save    func(ctx context.Context) error
	started time.Time
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler. save persists all durable state.
func NewAdminHandler(sim *world.Simulation, roster *world.Roster, groups *party.Manager, wars *war.Ledger, cities *city.Registry, tickers Tickers, save func(ctx context.Context) error, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sim:     sim,
		roster:  roster,
		groups:  groups,
		wars:    wars,
		cities:  cities,
		tickers: tickers,
		save:    save,
		started: time.Now(),
		logger:  logger,
	}
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime_s": int64(time.Since(h.started).Seconds()),
		"entities": h.sim.Len(),
		"groups":   h.groups.NumGroups(),
		"wars":     h.wars.Len(),
		"cities":   len(h.cities.Names()),
		"tickers":  h.tickers.ListTickers(),
	})
}

// Save handles POST /admin/save.
func (h *AdminHandler) Save(c *gin.Context) {
	if err := h.save(c.Request.Context()); err != nil {
		h.logger.Error("admin save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

type createCityRequest struct {
	Name string  `json:"name" binding:"required,min=1,max=64"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	King string  `json:"king"`
}

// CreateCity handles POST /admin/cities.
func (h *AdminHandler) CreateCity(c *gin.Context) {
	var req createCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.cities.Create(req.Name, combat.Point{X: req.X, Y: req.Y}, req.King); err != nil {
		writeError(c, err)
		return
	}
	ct, _ := h.cities.Get(req.Name)
	c.JSON(http.StatusCreated, gin.H{"city": ct})
}

type kingRequest struct {
	Player string `json:"player" binding:"required,min=1,max=64"`
}

// SetKing handles POST /admin/cities/:name/king.
func (h *AdminHandler) SetKing(c *gin.Context) {
	var req kingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.cities.SetKing(c.Param("name"), req.Player); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "crowned"})
}

type grantRequest struct {
	Player   string `json:"player"   binding:"required,min=1,max=64"`
	Item     string `json:"item"     binding:"required,min=1,max=64"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// GrantItems handles POST /admin/items.
func (h *AdminHandler) GrantItems(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roster.GrantItems(c.Request.Context(), req.Player, req.Item, req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "granted"})
}

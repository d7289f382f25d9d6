package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/world"
	mw "github.com/hellasmmo/server/middleware"
	"go.uber.org/zap"
)

// GameHandler handles the player's presence in the world, talents and casting.
type GameHandler struct {
	sim    *world.Simulation
	roster *world.Roster
	groups *party.Manager
	logger *zap.Logger
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(sim *world.Simulation, roster *world.Roster, groups *party.Manager, logger *zap.Logger) *GameHandler {
	return &GameHandler{sim: sim, roster: roster, groups: groups, logger: logger}
}

// JoinRequest is the body of POST /api/world/join.
type JoinRequest struct {
	Class string `json:"class" binding:"required,min=1,max=64"`
}

// Join handles POST /api/world/join.
func (h *GameHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	player := mw.GetPlayer(c)
	if err := h.roster.Join(c.Request.Context(), player, req.Class); err != nil {
		writeError(c, err)
		return
	}
	snap, _ := h.sim.Snapshot(player)
	c.JSON(http.StatusCreated, gin.H{"entity": snap})
}

// Leave handles POST /api/world/leave. The player also drops out of any group.
func (h *GameHandler) Leave(c *gin.Context) {
	player := mw.GetPlayer(c)
	if err := h.roster.Leave(c.Request.Context(), player); err != nil {
		writeError(c, err)
		return
	}
	if err := h.groups.Leave(player); err != nil && h.groups.IsInGroup(player) {
		h.logger.Warn("group leave failed", zap.String("player", player), zap.Error(err))
	}
	h.groups.CleanupInvites(player)
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

type talentRequest struct {
	Talent string `json:"talent" binding:"required,min=1,max=64"`
}

// TakeTalent handles POST /api/talents.
func (h *GameHandler) TakeTalent(c *gin.Context) {
	var req talentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	player := mw.GetPlayer(c)
	if err := h.roster.TakeTalent(c.Request.Context(), player, req.Talent); err != nil {
		writeError(c, err)
		return
	}
	snap, _ := h.sim.Snapshot(player)
	c.JSON(http.StatusOK, gin.H{"entity": snap})
}

// Spells handles GET /api/spells.
func (h *GameHandler) Spells(c *gin.Context) {
	spells, err := h.roster.KnownSpells(c.Request.Context(), mw.GetPlayer(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spells": spells})
}

// Items handles GET /api/items.
func (h *GameHandler) Items(c *gin.Context) {
	items, err := h.roster.Items(c.Request.Context(), mw.GetPlayer(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type castRequest struct {
	Spell  string `json:"spell"  binding:"required,min=1,max=64"`
	Target string `json:"target" binding:"required,min=1,max=64"`
}

// Cast handles POST /api/cast.
func (h *GameHandler) Cast(c *gin.Context) {
	var req castRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.roster.Cast(c.Request.Context(), req.Spell, mw.GetPlayer(c), req.Target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res.String()})
}

// Entity handles GET /api/entities/:name.
func (h *GameHandler) Entity(c *gin.Context) {
	snap, ok := h.sim.Snapshot(c.Param("name"))
	if !ok {
		writeError(c, world.ErrUnknownEntity)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": snap})
}

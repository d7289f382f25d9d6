package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/war"
	mw "github.com/hellasmmo/server/middleware"
)

// WarHandler handles war and peace endpoints.
type WarHandler struct {
	svc *war.Service
}

// NewWarHandler creates a new WarHandler.
func NewWarHandler(svc *war.Service) *WarHandler {
	return &WarHandler{svc: svc}
}

type warRequest struct {
	Name   string `json:"name"    binding:"required,min=1,max=64"`
	Kind   string `json:"kind"    binding:"omitempty,oneof=player city"`
	AsCity bool   `json:"as_city"`
}

func (r warRequest) belligerent() war.Belligerent {
	if r.Kind == "city" {
		return war.CityNamed(r.Name)
	}
	return war.PlayerNamed(r.Name)
}

func bind(c *gin.Context) (warRequest, bool) {
	var req warRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}

// List handles GET /api/wars. With ?mine=1 only the caller's wars are returned.
func (h *WarHandler) List(c *gin.Context) {
	if c.Query("mine") == "" {
		c.JSON(http.StatusOK, gin.H{"wars": h.svc.Ledger().All()})
		return
	}
	player := mw.GetPlayer(c)
	wars := h.svc.Ledger().WarsInvolving(war.PlayerNamed(player))
	if b, err := h.svc.ActingAs(player, true); err == nil {
		wars = append(wars, h.svc.Ledger().WarsInvolving(b)...)
	}
	if wars == nil {
		wars = []war.War{}
	}
	c.JSON(http.StatusOK, gin.H{"wars": wars})
}

// Declare handles POST /api/wars.
func (h *WarHandler) Declare(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	if err := h.svc.Declare(c.Request.Context(), mw.GetPlayer(c), req.AsCity, req.belligerent()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "war declared"})
}

// Propose handles POST /api/wars/peace.
func (h *WarHandler) Propose(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	if err := h.svc.SueForPeace(c.Request.Context(), mw.GetPlayer(c), req.AsCity, req.belligerent()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "peace proposed"})
}

// Cancel handles POST /api/wars/peace/cancel.
func (h *WarHandler) Cancel(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	if err := h.svc.CancelPeaceOffer(c.Request.Context(), mw.GetPlayer(c), req.AsCity, req.belligerent()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "peace offer withdrawn"})
}

// Accept handles POST /api/wars/peace/accept.
func (h *WarHandler) Accept(c *gin.Context) {
	req, ok := bind(c)
	if !ok {
		return
	}
	if err := h.svc.AcceptPeace(c.Request.Context(), mw.GetPlayer(c), req.AsCity, req.belligerent()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "peace made"})
}

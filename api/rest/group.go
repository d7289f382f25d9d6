package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/party"
	mw "github.com/hellasmmo/server/middleware"
)

// GroupHandler handles group endpoints.
type GroupHandler struct {
	groups *party.Manager
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groups *party.Manager) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type inviteRequest struct {
	Player string `json:"player" binding:"required,min=1,max=64"`
}

// Mine handles GET /api/groups/me.
func (h *GroupHandler) Mine(c *gin.Context) {
	player := mw.GetPlayer(c)
	resp := gin.H{
		"members":    h.groups.GroupOf(player),
		"invitation": h.groups.HasInvitation(player),
	}
	if id, ok := h.groups.GroupID(player); ok {
		resp["group_id"] = id
	}
	c.JSON(http.StatusOK, resp)
}

// Create handles POST /api/groups.
func (h *GroupHandler) Create(c *gin.Context) {
	if err := h.groups.CreateGroup(mw.GetPlayer(c)); err != nil {
		writeError(c, err)
		return
	}
	id, _ := h.groups.GroupID(mw.GetPlayer(c))
	c.JSON(http.StatusCreated, gin.H{"group_id": id})
}

// Invite handles POST /api/groups/invite.
func (h *GroupHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Player == mw.GetPlayer(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot invite yourself"})
		return
	}
	if err := h.groups.RegisterInvitation(mw.GetPlayer(c), req.Player); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invited"})
}

// Accept handles POST /api/groups/accept.
func (h *GroupHandler) Accept(c *gin.Context) {
	player := mw.GetPlayer(c)
	if err := h.groups.AcceptInvitation(player); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": h.groups.GroupOf(player)})
}

// Decline handles POST /api/groups/decline.
func (h *GroupHandler) Decline(c *gin.Context) {
	h.groups.DeclineInvitation(mw.GetPlayer(c))
	c.JSON(http.StatusOK, gin.H{"message": "declined"})
}

// Leave handles POST /api/groups/leave.
func (h *GroupHandler) Leave(c *gin.Context) {
	if err := h.groups.Leave(mw.GetPlayer(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/city"
	mw "github.com/hellasmmo/server/middleware"
)

// CityHandler handles city endpoints.
type CityHandler struct {
	cities *city.Registry
}

// NewCityHandler creates a new CityHandler.
func NewCityHandler(cities *city.Registry) *CityHandler {
	return &CityHandler{cities: cities}
}

// List handles GET /api/cities.
func (h *CityHandler) List(c *gin.Context) {
	all, _ := h.cities.Snapshot()
	if all == nil {
		all = []city.City{}
	}
	c.JSON(http.StatusOK, gin.H{"cities": all})
}

// Get handles GET /api/cities/:name.
func (h *CityHandler) Get(c *gin.Context) {
	name := c.Param("name")
	ct, ok := h.cities.Get(name)
	if !ok {
		writeError(c, city.ErrNoSuchCity)
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": ct, "members": h.cities.MembersOf(name)})
}

// Join handles POST /api/cities/:name/join.
func (h *CityHandler) Join(c *gin.Context) {
	if err := h.cities.AddPlayer(mw.GetPlayer(c), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// Leave handles POST /api/cities/leave.
func (h *CityHandler) Leave(c *gin.Context) {
	if !h.cities.RemovePlayer(mw.GetPlayer(c)) {
		writeError(c, city.ErrNotMember)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

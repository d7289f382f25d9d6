package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/game/city"
	"github.com/hellasmmo/server/game/item"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/talent"
	"github.com/hellasmmo/server/game/war"
	"github.com/hellasmmo/server/game/world"
)

var statusOf = []struct {
	err    error
	status int
}{
	{war.ErrNotInCity, http.StatusForbidden},
	{war.ErrNotAKing, http.StatusForbidden},
	{war.ErrDeclarationBlocked, http.StatusForbidden},
	{war.ErrSelfWar, http.StatusBadRequest},
	{war.ErrAlreadyAtWar, http.StatusConflict},
	{war.ErrPeaceOfferPending, http.StatusConflict},
	{war.ErrNotAtWar, http.StatusNotFound},
	{war.ErrNoPeaceOffer, http.StatusNotFound},

	{city.ErrCityExists, http.StatusConflict},
	{city.ErrAlreadyInCity, http.StatusConflict},
	{city.ErrNoSuchCity, http.StatusNotFound},
	{city.ErrNotMember, http.StatusForbidden},

	{party.ErrAlreadyInGroup, http.StatusConflict},
	{party.ErrGroupFull, http.StatusConflict},
	{party.ErrNotInGroup, http.StatusNotFound},
	{party.ErrNoInvitation, http.StatusNotFound},

	{talent.ErrUnknownTalent, http.StatusNotFound},
	{talent.ErrNoTalentPoints, http.StatusConflict},
	{talent.ErrTalentMaxRank, http.StatusConflict},
	{talent.ErrTierLocked, http.StatusConflict},
	{talent.ErrCannotAfford, http.StatusConflict},

	{item.ErrBagFull, http.StatusConflict},
	{item.ErrNotEnough, http.StatusConflict},
	{item.ErrInvalidAmount, http.StatusBadRequest},

	{world.ErrUnknownEntity, http.StatusNotFound},
	{world.ErrUnknownClass, http.StatusNotFound},
	{world.ErrUnknownSpell, http.StatusNotFound},
	{world.ErrEntityExists, http.StatusConflict},
	{world.ErrSpellUnknown, http.StatusForbidden},
	{world.ErrNotAUser, http.StatusBadRequest},
	{world.ErrQueueFull, http.StatusServiceUnavailable},
}

// writeError maps a domain error to a status code and JSON body.
func writeError(c *gin.Context, err error) {
	for _, m := range statusOf {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

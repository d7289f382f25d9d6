package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/api/sse"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/config"
	"github.com/hellasmmo/server/game/city"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/war"
	"github.com/hellasmmo/server/game/world"
	mw "github.com/hellasmmo/server/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Security config.SecurityConfig
	Sessions cache.Cache
	PubSub   cache.PubSub
	Sim      *world.Simulation
	Roster   *world.Roster
	Groups   *party.Manager
	Wars     *war.Service
	Cities   *city.Registry
	Tickers  Tickers
	Save     func(ctx context.Context) error
	Logger   *zap.Logger
}

// NewRouter builds the gin engine. ctx bounds background middleware work.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	if d.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, rate.Limit(d.Security.RateLimitRPS), d.Security.RateLimitBurst))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	warH := NewWarHandler(d.Wars)
	groupH := NewGroupHandler(d.Groups)
	cityH := NewCityHandler(d.Cities)
	gameH := NewGameHandler(d.Sim, d.Roster, d.Groups, d.Logger)
	adminH := NewAdminHandler(d.Sim, d.Roster, d.Groups, d.Wars.Ledger(), d.Cities, d.Tickers, d.Save, d.Logger)

	api := r.Group("/api")
	api.Use(mw.Auth(d.Sessions))
	{
		api.GET("/wars", warH.List)
		api.POST("/wars", warH.Declare)
		api.POST("/wars/peace", warH.Propose)
		api.POST("/wars/peace/cancel", warH.Cancel)
		api.POST("/wars/peace/accept", warH.Accept)

		api.GET("/groups/me", groupH.Mine)
		api.POST("/groups", groupH.Create)
		api.POST("/groups/invite", groupH.Invite)
		api.POST("/groups/accept", groupH.Accept)
		api.POST("/groups/decline", groupH.Decline)
		api.POST("/groups/leave", groupH.Leave)

		api.GET("/cities", cityH.List)
		api.GET("/cities/:name", cityH.Get)
		api.POST("/cities/:name/join", cityH.Join)
		api.POST("/cities/leave", cityH.Leave)

		api.POST("/world/join", gameH.Join)
		api.POST("/world/leave", gameH.Leave)
		api.POST("/talents", gameH.TakeTalent)
		api.GET("/spells", gameH.Spells)
		api.GET("/items", gameH.Items)
		api.POST("/cast", gameH.Cast)
		api.GET("/entities/:name", gameH.Entity)
	}

	admin := r.Group("/admin")
	admin.Use(mw.IPWhitelist(d.Security.AdminIPs, d.Logger))
	{
		admin.GET("/metrics", adminH.Metrics)
		admin.POST("/save", adminH.Save)
		admin.POST("/cities", adminH.CreateCity)
		admin.POST("/cities/:name/king", adminH.SetKing)
		admin.POST("/items", adminH.GrantItems)
	}

	sseH := sse.NewHandler(d.PubSub, d.Sessions, d.Cities, d.Logger)
	r.GET("/sse", sseH.ServeSSE)
	return r
}

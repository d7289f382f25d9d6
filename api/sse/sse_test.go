package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/game/party"
	"github.com/hellasmmo/server/game/war"
	mw "github.com/hellasmmo/server/middleware"
	"github.com/hellasmmo/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cityMap map[string]string

func (m cityMap) CityOf(p string) (string, bool) { c, ok := m[p]; return c, ok }

func payload(t *testing.T, v interface{}) string {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestFilter_War(t *testing.T) {
	f := &filter{player: "socrates", cities: cityMap{"socrates": "athens"}}
	msg := func(n war.Notice) *cache.Message {
		return &cache.Message{Channel: war.ChannelWar, Payload: payload(t, n)}
	}
	assert.True(t, f.relevant(msg(war.Notice{Event: war.EventDeclared, From: war.PlayerNamed("socrates"), To: war.PlayerNamed("x")})))
	assert.True(t, f.relevant(msg(war.Notice{Event: war.EventDeclared, From: war.CityNamed("sparta"), To: war.CityNamed("athens")})))
	assert.False(t, f.relevant(msg(war.Notice{Event: war.EventDeclared, From: war.CityNamed("sparta"), To: war.PlayerNamed("athens")})))
	assert.False(t, f.relevant(&cache.Message{Channel: war.ChannelWar, Payload: "not json"}))
}

func TestFilter_Group(t *testing.T) {
	f := &filter{player: "alice"}
	msg := func(u party.Update) *cache.Message {
		return &cache.Message{Channel: party.ChannelGroup, Payload: payload(t, u)}
	}
	assert.False(t, f.relevant(msg(party.Update{GroupID: 1, Event: party.EventCreated, Members: []string{"bob", "carol"}})))
	assert.True(t, f.relevant(msg(party.Update{GroupID: 2, Event: party.EventCreated, Members: []string{"alice", "bob"}})))
	// alice left group 2; she still hears about it once.
	assert.True(t, f.relevant(msg(party.Update{GroupID: 2, Event: party.EventLeft, Members: []string{"bob", "dave"}})))
	assert.False(t, f.relevant(msg(party.Update{GroupID: 2, Event: party.EventDisbanded})))
}

func TestServeSSE_Unauthorized(t *testing.T) {
	c, ps := testutil.SetupTestCache(t)
	h := NewHandler(ps, c, nil, zap.NewNop())
	r := gin.New()
	r.GET("/sse", h.ServeSSE)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse?token=nope", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServeSSE_StreamsRelevantNotices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, ps := testutil.SetupTestCache(t)
	require.NoError(t, c.Set(context.Background(), mw.SessionKey("tok"), "socrates", time.Minute))
	h := NewHandler(ps, c, cityMap{"socrates": "athens"}, zap.NewNop())
	r := gin.New()
	r.GET("/sse", h.ServeSSE)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse?token=tok", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: connected", lines.Text())

	// Subscription is live once the connected event has been written.
	skip := war.Notice{Event: war.EventDeclared, From: war.PlayerNamed("a"), To: war.PlayerNamed("b")}
	keep := war.Notice{Event: war.EventDeclared, From: war.CityNamed("sparta"), To: war.CityNamed("athens")}
	require.NoError(t, ps.Publish(ctx, war.ChannelWar, payload(t, skip)))
	require.NoError(t, ps.Publish(ctx, war.ChannelWar, payload(t, keep)))

	var events []string
	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "sparta") {
			events = append(events, line)
			break
		}
		assert.NotContains(t, line, `"name":"a"`)
	}
	require.Len(t, events, 1)
}

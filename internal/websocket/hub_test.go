package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubDeliversOnlyToAudience(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	manager := &Client{Hub: hub, AccountID: uuid.New(), Send: make(chan []byte, 4)}
	wholesaler := &Client{Hub: hub, AccountID: uuid.New(), Send: make(chan []byte, 4)}
	other := &Client{Hub: hub, AccountID: uuid.New(), Send: make(chan []byte, 4)}
	for _, c := range []*Client{manager, wholesaler, other} {
		hub.register <- c
	}

	appraisalID := uuid.New()
	hub.Publish(Event{Type: "offer.updated", AppraisalID: appraisalID}, manager.AccountID, wholesaler.AccountID, manager.AccountID)

	assert.Equal(t, "offer.updated", receive(t, manager.Send).Type)
	assert.Equal(t, appraisalID, receive(t, wholesaler.Send).AppraisalID)

	hub.Stop()
	<-done

	_, ok := <-other.Send
	assert.False(t, ok)
	assert.Empty(t, manager.Send)
	hub.Stop()
}

func TestPublishWithoutAudienceIsDropped(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{Type: "appraisal.created"})
	assert.Empty(t, hub.deliver)
}

func TestServeWsStreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	accountID := uuid.New()
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, accountID) })
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	_ = resp.Body.Close()

	// registration races the dial returning, so keep publishing until one arrives
	appraisalID := uuid.New()
	stop := make(chan struct{})
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(Event{Type: "winner.selected", AppraisalID: appraisalID}, accountID)
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	close(stop)
	<-publisherDone
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "winner.selected", ev.Type)
	assert.Equal(t, appraisalID, ev.AppraisalID)

	_ = conn.Close()
	hub.Stop()
	<-done
}

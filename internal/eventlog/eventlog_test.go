package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_RingOverwritesOldest(t *testing.T) {
	log := New(3)

	for i := range 5 {
		log.Add("mission_command_processed", fmt.Sprintf("entry %d", i), nil)
	}

	assert.Equal(t, 3, log.Len())
	recent := log.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "entry 4", recent[0].Message)
	assert.Equal(t, "entry 2", recent[2].Message)

	limited := log.Recent(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "entry 3", limited[1].Message)
}

func TestEventLog_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestEventLog_MetadataIsCopied(t *testing.T) {
	log := New(10)
	metadata := map[string]any{"command_id": "c1"}

	entry := log.Add("checklist_command_rejected", "rejected", metadata)
	metadata["command_id"] = "mutated"

	assert.Equal(t, "c1", entry.Metadata["command_id"])
	assert.Equal(t, "c1", log.Recent(1)[0].Metadata["command_id"])
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestEventLog_Subscribe(t *testing.T) {
	log := New(10)

	var received []Entry
	unsubscribe := log.Subscribe(func(e Entry) {
		received = append(received, e)
		// Listeners run outside the lock and may read the log.
		_ = log.Len()
	})

	log.Record("capability_revoked", "revoked", nil)
	unsubscribe()
	unsubscribe()
	log.Record("capability_revoked", "revoked again", nil)

	require.Len(t, received, 1)
	assert.Equal(t, "capability_revoked", received[0].Type)
}

func TestEventLog_ConcurrentAdd(t *testing.T) {
	log := New(50)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 10 {
				log.Add("outbound_payload_dropped", fmt.Sprintf("%d-%d", n, j), nil)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, log.Len())
}

func TestHandler_ListHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := New(10)
	log.Add("a", "first", nil)
	log.Add("b", "second", nil)

	router := gin.New()
	router.GET("/v1/event-log", NewHandler(log, slog.New(slog.NewTextHandler(io.Discard, nil))).ListHandler)

	t.Run("Success", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/event-log?limit=1", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Entries []Entry `json:"entries"`
			Total   int     `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Entries, 1)
		assert.Equal(t, "second", body.Entries[0].Message)
		assert.Equal(t, 2, body.Total)
	})

	t.Run("Error_InvalidLimit", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/event-log?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogaki/delila-go/internal/wire"
)

func newTestHTTPServer(t *testing.T) (*httpServer, *engine) {
	t.Helper()
	eng := newTestEngine(t)
	return &httpServer{eng: eng}, eng
}

func TestHandleSnapshotReturnsJSON(t *testing.T) {
	h, eng := newTestHTTPServer(t)
	b := wire.NewBatch(1, 0)
	b.Push(wire.NewEventData(2, 3, 500, 375, 1.0, 0))
	eng.submitBatch(b)
	_ = eng.Snapshot() // synchronize: wait for the batch to be processed

	req := httptest.NewRequest(http.MethodGet, "/histograms", nil)
	rec := httptest.NewRecorder()
	h.handleSnapshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap StateSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, uint64(1), snap.TotalEvents)
}

func TestHandleOneReturns404ForUnknownChannel(t *testing.T) {
	h, _ := newTestHTTPServer(t)
	req := httptest.NewRequest(http.MethodGet, "/histograms/9/9", nil)
	rec := httptest.NewRecorder()
	h.handleOne(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOneReturns400ForMalformedPath(t *testing.T) {
	h, _ := newTestHTTPServer(t)
	req := httptest.NewRequest(http.MethodGet, "/histograms/bogus", nil)
	rec := httptest.NewRecorder()
	h.handleOne(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClearRespondsNoContent(t *testing.T) {
	h, _ := newTestHTTPServer(t)
	req := httptest.NewRequest(http.MethodPost, "/clear", nil)
	rec := httptest.NewRecorder()
	h.handleClear(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestParseChannelPath(t *testing.T) {
	m, c, ok := parseChannelPath("/histograms/3/7")
	require.True(t, ok)
	require.Equal(t, uint32(3), m)
	require.Equal(t, uint32(7), c)

	_, _, ok = parseChannelPath("/histograms/3")
	require.False(t, ok)
}

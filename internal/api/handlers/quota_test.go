package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelliprep/backend/internal/auth"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/quota"
)

// fakeUsageStore is an in-memory quota.UsageStore
type fakeUsageStore struct {
	mu      sync.Mutex
	records map[string]*quota.UsageRecord
	swaps   int
}

func (s *fakeUsageStore) GetUsage(_ context.Context, userID string) (*quota.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, quota.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *fakeUsageStore) CompareAndSwapUsage(_ context.Context, userID string, prev, next quota.Stamp) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok || rec.UsageCount != prev.Count || rec.UsageDate != prev.Date {
		return false, nil
	}
	rec.UsageCount = next.Count
	rec.UsageDate = next.Date
	s.swaps++
	return true, nil
}

func trackRequest(t *testing.T, handler *QuotaHandler, body string, profile *models.Profile) TrackResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/track", strings.NewReader(body))
	if profile != nil {
		ctx := context.WithValue(req.Context(), auth.ProfileContextKey, profile)
		req = req.WithContext(ctx)
	}

	rr := httptest.NewRecorder()
	handler.Track(rr, req)

	// Every outcome is reported with HTTP 200
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TrackResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestTrackAllowed(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{
		"u1": {UserID: "u1"},
	}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, "", &models.Profile{ID: "u1"})

	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Remaining)
	assert.Equal(t, 9, *resp.Remaining)
}

func TestTrackBodyUserIDFallback(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{
		"u2": {UserID: "u2"},
	}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, `{"user_id":"u2"}`, nil)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, store.swaps)
}

func TestTrackCredentialBeatsBody(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{
		"u1": {UserID: "u1"},
		"u2": {UserID: "u2"},
	}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, `{"user_id":"u2"}`, &models.Profile{ID: "u1"})

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, store.records["u1"].UsageCount)
	assert.Equal(t, 0, store.records["u2"].UsageCount)
}

func TestTrackNoIdentity(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, "", nil)

	assert.Equal(t, "unauthorized", resp.Status)
	assert.Equal(t, 0, store.swaps, "no record may be touched without an identity")
}

func TestTrackMalformedBody(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, "{not json", nil)

	assert.Equal(t, "unauthorized", resp.Status)
}

func TestTrackLimitExceeded(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{
		"u1": {UserID: "u1", UsageCount: quota.DefaultFreeLimit, UsageDate: today},
	}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, "", &models.Profile{ID: "u1"})

	assert.Equal(t, "limit_exceeded", resp.Status)
	assert.Equal(t, quota.DefaultFreeLimit, resp.Limit)
	assert.Equal(t, 0, store.swaps)
}

func TestTrackProfileNotFound(t *testing.T) {
	store := &fakeUsageStore{records: map[string]*quota.UsageRecord{}}
	handler := NewQuotaHandler(quota.NewGate(store))

	resp := trackRequest(t, handler, `{"user_id":"ghost"}`, nil)

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "profile_not_found", resp.Error)
}

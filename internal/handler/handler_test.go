package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mattdomit/dotted-sub000/internal/bidding"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/optimization"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
	"github.com/mattdomit/dotted-sub000/internal/service"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEngine struct {
	err    error
	target string
}

func (f *fakeEngine) AdvancePhase(_ context.Context, cycleID, target string) (*models.Cycle, error) {
	f.target = target
	if f.err != nil {
		return nil, f.err
	}
	return &models.Cycle{ID: cycleID, Phase: models.PhaseVoting}, nil
}

func (f *fakeEngine) ComputeDishScores(context.Context, string) ([]optimization.Result, error) {
	return nil, f.err
}

func (f *fakeEngine) ScoreBids(_ context.Context, cycleID string) (bidding.Result, error) {
	return bidding.Result{CycleID: cycleID}, f.err
}

func (f *fakeEngine) MatchSuppliers(_ context.Context, cycleID string) (sourcing.Result, error) {
	return sourcing.Result{CycleID: cycleID}, f.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path string, body any, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func newCycleRouter(t *testing.T) (*gin.Engine, *memstore.Store, *fakeEngine) {
	t.Helper()
	store := memstore.New()
	engine := &fakeEngine{}
	r := gin.New()
	(&CycleHandler{Repo: store, Engine: engine}).Register(r)
	(&ZoneHandler{Repo: store}).Register(r)
	return r, store, engine
}

func TestCycleHandler_Get(t *testing.T) {
	r, store, _ := newCycleRouter(t)
	cycle := &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}
	require.NoError(t, store.CreateCycle(context.Background(), cycle))

	w, env := do(t, r, http.MethodGet, "/api/v1/cycles/"+cycle.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got cycleView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, models.PhaseSuggesting, got.Phase)
	assert.Equal(t, []string{models.PhaseVoting, models.PhaseCancelled}, got.NextPhases)

	w, _ = do(t, r, http.MethodGet, "/api/v1/cycles/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCycleHandler_ListRejectsUnknownPhase(t *testing.T) {
	r, _, _ := newCycleRouter(t)
	w, _ := do(t, r, http.MethodGet, "/api/v1/cycles?phase=brunch", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/v1/cycles?phase=voting", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestCycleHandler_DishesRankedBestFirst(t *testing.T) {
	r, store, _ := newCycleRouter(t)
	ctx := context.Background()
	cycle := &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}
	require.NoError(t, store.CreateCycle(ctx, cycle))
	require.NoError(t, store.ReplaceDishes(ctx, cycle.ID, []models.Dish{
		{ID: "low", Name: "Low", Cuisine: "x"},
		{ID: "high", Name: "High", Cuisine: "x"},
		{ID: "none", Name: "Unscored", Cuisine: "x"},
	}))
	low, high := 0.2, 0.9
	for id, v := range map[string]float64{"low": low, "high": high} {
		require.NoError(t, store.UpdateDishScores(ctx, id, scoresOf(v)))
	}

	w, env := do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/cycles/%s/dishes", cycle.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dishes []models.Dish
	require.NoError(t, json.Unmarshal(env.Data, &dishes))
	require.Len(t, dishes, 3)
	assert.Equal(t, "high", dishes[0].ID)
	assert.Equal(t, "low", dishes[1].ID)
	assert.Equal(t, "none", dishes[2].ID)
}

func TestCycleHandler_AdvanceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		want   int
		reason string
	}{
		{nil, http.StatusOK, ""},
		{fmt.Errorf("%w: COMPLETED -> VOTING", orchestrator.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: cycle c-1", orchestrator.ErrTransitionInProgress), http.StatusConflict, "transition_in_progress"},
		{fmt.Errorf("%w: c-1", orchestrator.ErrCycleNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("score: %w", orchestrator.ErrNoPendingBids), http.StatusUnprocessableEntity, "precondition_failed"},
		{fmt.Errorf("%w: 4 suggested", orchestrator.ErrNoViableDishes), http.StatusUnprocessableEntity, "precondition_failed"},
		{fmt.Errorf("%w: timeout", orchestrator.ErrSuggestionFailed), http.StatusBadGateway, "suggestion_failed"},
		{fmt.Errorf("%w: \"x\"", orchestrator.ErrUnknownPhase), http.StatusBadRequest, "unknown_phase"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		r, _, engine := newCycleRouter(t)
		engine.err = tc.err
		w, env := do(t, r, http.MethodPost, "/api/v1/cycles/c-1/advance", map[string]string{"target": "voting"})
		assert.Equal(t, tc.want, w.Code, "err=%v", tc.err)
		assert.Equal(t, tc.reason, env.Reason, "err=%v", tc.err)
		assert.Equal(t, "voting", engine.target)
	}
}

func TestCycleHandler_AdvanceRequiresTarget(t *testing.T) {
	r, _, engine := newCycleRouter(t)
	w, _ := do(t, r, http.MethodPost, "/api/v1/cycles/c-1/advance", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, engine.target)
}

func TestCycleHandler_StandaloneOperations(t *testing.T) {
	r, _, engine := newCycleRouter(t)
	w, env := do(t, r, http.MethodPost, "/api/v1/cycles/c-9/score-bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "c-9")

	engine.err = sourcing.ErrAlreadySourced
	w, _ = do(t, r, http.MethodPost, "/api/v1/cycles/c-9/match-suppliers", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestZoneHandler(t *testing.T) {
	r, store, _ := newCycleRouter(t)
	ctx := context.Background()
	zone := &models.Zone{Name: "Downtown", Active: true}
	require.NoError(t, store.CreateZone(ctx, zone))
	require.NoError(t, store.AddZoneMember(ctx, &models.ZoneMember{ZoneID: zone.ID, UserID: "u-1"}))

	w, env := do(t, r, http.MethodGet, "/api/v1/zones/"+zone.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got zoneView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(1), got.Members)

	w, _ = do(t, r, http.MethodGet, "/api/v1/zones/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsHandler_Switches(t *testing.T) {
	store := memstore.New()
	settings := &service.SystemSettingsService{Repo: store}
	r := gin.New()
	(&SettingsHandler{Repo: store, Settings: settings}).Register(r)

	w, env := do(t, r, http.MethodGet, "/api/v1/settings/switches/sweep.voting", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"enabled":true`)

	w, _ = do(t, r, http.MethodPut, "/api/v1/settings/switches/sweep.voting", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, settings.IsEnabled(context.Background(), service.FeatureSweepVoting, true))

	w, _ = do(t, r, http.MethodPut, "/api/v1/settings/switches/sweep.voting", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, "/api/v1/settings/feature.broadcast", map[string]any{"value": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSweepHandler(t *testing.T) {
	store := memstore.New()
	o := &orchestrator.Orchestrator{Repo: store}
	r := gin.New()
	(&SweepHandler{Sweeper: o}).Register(r)

	w, env := do(t, r, http.MethodPost, "/api/v1/sweeps", map[string]string{"target": "bidding"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"target":"BIDDING"`)

	w, _ = do(t, r, http.MethodPost, "/api/v1/sweeps", map[string]string{"target": "brunch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/sweeps/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestWriteAudit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(WriteAudit(zap.New(core)))
	r.GET("/api/v1/zones", func(c *gin.Context) { Ok(c, []string{}, nil) })
	r.POST("/api/v1/sweeps", func(c *gin.Context) { Ok(c, nil, nil) })
	r.POST("/api/v1/cycles/c-1/advance", func(c *gin.Context) {
		writeError(c, errors.New("disk full"))
	})
	r.POST("/hooks", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(t, r, http.MethodGet, "/api/v1/zones", nil)
	do(t, r, http.MethodPost, "/hooks", nil)
	do(t, r, http.MethodPost, "/api/v1/sweeps", nil)
	do(t, r, http.MethodPost, "/api/v1/cycles/c-1/advance", nil)

	entries := logs.FilterMessage("api write").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/api/v1/sweeps", entries[0].ContextMap()["path"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusInternalServerError, entries[1].ContextMap()["status"])
}

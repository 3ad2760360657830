package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/lotostats/internal/database"
	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/predict"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stubSynchronizer struct {
	calls  []string
	result drawsync.Result
	err    error
}

func (s *stubSynchronizer) run(mode, category string) (drawsync.Result, error) {
	s.calls = append(s.calls, mode+":"+category)
	result := s.result
	result.Category = category
	return result, s.err
}

func (s *stubSynchronizer) InitialLoad(_ context.Context, category string) (drawsync.Result, error) {
	return s.run("load", category)
}

func (s *stubSynchronizer) Refresh(_ context.Context, category string) (drawsync.Result, error) {
	return s.run("refresh", category)
}

func (s *stubSynchronizer) ForceReset(_ context.Context, category string) (drawsync.Result, error) {
	return s.run("reset", category)
}

type stubPredictor struct {
	prediction predict.Prediction
	err        error
	seen       int
}

func (p *stubPredictor) Predict(_ context.Context, category string, records []draws.Draw) (predict.Prediction, error) {
	p.seen = len(records)
	if p.err != nil {
		return predict.Prediction{}, p.err
	}
	if len(records) == 0 {
		return predict.Prediction{}, predict.ErrNoHistory
	}
	prediction := p.prediction
	prediction.Category = category
	return prediction, nil
}

type routerFixture struct {
	handler      http.Handler
	store        *draws.Store
	synchronizer *stubSynchronizer
	predictor    *stubPredictor
	realtime     *RealtimeDispatcher
}

type fixtureOption func(*Dependencies)

func withoutPredictor() fixtureOption {
	return func(deps *Dependencies) {
		deps.Predictor = nil
	}
}

func newRouterFixture(t *testing.T, options ...fixtureOption) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "router.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	store, err := draws.NewStore(draws.StoreConfig{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	queries, err := draws.NewQueries(store)
	if err != nil {
		t.Fatalf("failed to create queries: %v", err)
	}

	fixture := routerFixture{
		store:        store,
		synchronizer: &stubSynchronizer{},
		predictor:    &stubPredictor{},
		realtime:     NewRealtimeDispatcher(),
	}
	deps := Dependencies{
		Store:        store,
		Queries:      queries,
		Synchronizer: fixture.synchronizer,
		Predictor:    fixture.predictor,
		Realtime:     fixture.realtime,
		Logger:       zap.NewNop(),
	}
	for _, option := range options {
		option(&deps)
	}

	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	fixture.handler = handler
	return fixture
}

func (fixture routerFixture) seed(t *testing.T, records ...draws.Draw) {
	t.Helper()
	if _, err := fixture.store.InsertMany(context.Background(), records); err != nil {
		t.Fatalf("failed to seed draws: %v", err)
	}
}

func (fixture routerFixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	if body == nil {
		payload = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		payload = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, target, payload)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func testDraw(category, date string, winning ...int) draws.Draw {
	if len(winning) == 0 {
		winning = []int{5, 17, 33, 48, 90}
	}
	return draws.Draw{Category: category, Date: date, WinningNumbers: winning}
}

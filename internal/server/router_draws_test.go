package server

import (
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/predict"
	"github.com/MarcoPoloResearchLab/lotostats/internal/provider"
)

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

func TestListCategoriesReturnsCatalog(t *testing.T) {
	fixture := newRouterFixture(t)

	recorder := fixture.do(t, http.MethodGet, "/categories", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var payload struct {
		Categories []categoryPayload `json:"categories"`
	}
	decodeBody(t, recorder, &payload)
	if len(payload.Categories) != 28 {
		t.Fatalf("expected 28 categories, got %d", len(payload.Categories))
	}
}

func TestListCategoryDrawsNewestFirst(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.seed(t,
		testDraw("Reveil", "2025-04-28"),
		testDraw("Reveil", "2025-05-05"),
		testDraw("Etoile", "2025-05-06"),
	)

	recorder := fixture.do(t, http.MethodGet, "/categories/reveil/draws", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var payload drawListPayload
	decodeBody(t, recorder, &payload)
	if len(payload.Draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(payload.Draws))
	}
	if payload.Draws[0].Date != "2025-05-05" || payload.Draws[1].Date != "2025-04-28" {
		t.Fatalf("unexpected order: %+v", payload.Draws)
	}
	if payload.Draws[0].MachineNumbers == nil {
		t.Fatalf("expected machine numbers to render as an empty list")
	}
}

func TestUnknownCategoryIsNotFound(t *testing.T) {
	fixture := newRouterFixture(t)

	recorder := fixture.do(t, http.MethodGet, "/categories/loto-magique/draws", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}
}

func TestLatestDate(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.seed(t, testDraw("Cash", "2025-05-01"), testDraw("Cash", "2025-05-08"))

	var payload struct {
		Category string `json:"category"`
		Found    bool   `json:"found"`
		Date     string `json:"date"`
	}
	decodeBody(t, fixture.do(t, http.MethodGet, "/categories/especes/latest", nil), &payload)
	if !payload.Found || payload.Date != "2025-05-08" || payload.Category != "Cash" {
		t.Fatalf("unexpected latest payload %+v", payload)
	}

	decodeBody(t, fixture.do(t, http.MethodGet, "/categories/reveil/latest", nil), &payload)
	if payload.Found {
		t.Fatalf("expected empty category to report not found, got %+v", payload)
	}
}

func TestGetDraw(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.seed(t, testDraw("Reveil", "2025-05-05"))

	var listed drawListPayload
	decodeBody(t, fixture.do(t, http.MethodGet, "/draws", nil), &listed)
	if len(listed.Draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(listed.Draws))
	}
	id := strconv.FormatInt(listed.Draws[0].ID, 10)

	recorder := fixture.do(t, http.MethodGet, "/draws/"+id, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if code := fixture.do(t, http.MethodGet, "/draws/9999", nil).Code; code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", code)
	}
	if code := fixture.do(t, http.MethodGet, "/draws/abc", nil).Code; code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", code)
	}
}

func TestSyncEndpointsRunTheRequestedMode(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.synchronizer.result = drawsync.Result{
		RunID:   "run-1",
		Mode:    "refresh",
		Records: []draws.Draw{testDraw("Reveil", "2025-05-05")},
		Months: []drawsync.MonthOutcome{
			{Month: provider.MonthSelector{Year: 2025, Month: time.May}, Fetched: 1, Inserted: 1},
			{Month: provider.MonthSelector{Year: 2025, Month: time.April}, Err: provider.ErrFetchFailed},
		},
		Err: provider.ErrFetchFailed,
	}

	for _, mode := range []string{"load", "refresh", "reset"} {
		recorder := fixture.do(t, http.MethodPost, "/categories/reveil/"+mode, nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200 for a partial result, got %d", mode, recorder.Code)
		}
		var payload syncResultPayload
		decodeBody(t, recorder, &payload)
		if payload.Category != "Reveil" || len(payload.Records) != 1 {
			t.Fatalf("%s: unexpected payload %+v", mode, payload)
		}
		if payload.Error == "" || payload.Months[1].Error == "" {
			t.Fatalf("%s: expected failures to be reported, got %+v", mode, payload)
		}
		if payload.Months[0].Month != "mai-2025" {
			t.Fatalf("%s: expected month slug, got %q", mode, payload.Months[0].Month)
		}
	}

	expected := []string{"load:Reveil", "refresh:Reveil", "reset:Reveil"}
	for index, call := range expected {
		if fixture.synchronizer.calls[index] != call {
			t.Fatalf("expected call %s, got %s", call, fixture.synchronizer.calls[index])
		}
	}
}

func TestSyncStorageFailureMapsToServiceUnavailable(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.synchronizer.err = draws.ErrStorageUnavailable

	recorder := fixture.do(t, http.MethodPost, "/categories/reveil/refresh", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", recorder.Code)
	}
}

func TestFrequencies(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.seed(t,
		testDraw("Reveil", "2025-05-05", 1, 2, 3, 4, 5),
		testDraw("Reveil", "2025-04-28", 1, 6, 7, 8, 9),
	)

	var payload struct {
		DrawsConsidered int `json:"draws_considered"`
		Numbers         []struct {
			Number int `json:"number"`
			Total  int `json:"total"`
		} `json:"numbers"`
	}
	decodeBody(t, fixture.do(t, http.MethodGet, "/categories/reveil/stats", nil), &payload)
	if payload.DrawsConsidered != 2 {
		t.Fatalf("expected 2 draws considered, got %d", payload.DrawsConsidered)
	}
	if payload.Numbers[0].Number != 1 || payload.Numbers[0].Total != 2 {
		t.Fatalf("expected 1 to lead with 2 appearances, got %+v", payload.Numbers[0])
	}

	decodeBody(t, fixture.do(t, http.MethodGet, "/categories/reveil/stats?limit=1", nil), &payload)
	if payload.DrawsConsidered != 1 {
		t.Fatalf("expected 1 draw considered, got %d", payload.DrawsConsidered)
	}

	if code := fixture.do(t, http.MethodGet, "/categories/reveil/stats?limit=-2", nil).Code; code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", code)
	}
}

func TestCoOccurrences(t *testing.T) {
	fixture := newRouterFixture(t)
	withMachine := testDraw("Reveil", "2025-04-21", 1, 40, 41, 42, 43)
	withMachine.MachineNumbers = []int{2, 60, 61, 62, 63}
	fixture.seed(t,
		testDraw("Reveil", "2025-05-05", 1, 2, 3, 4, 5),
		testDraw("Reveil", "2025-04-28", 1, 2, 7, 8, 9),
		withMachine,
	)

	type companion struct {
		Number int `json:"number"`
		Count  int `json:"count"`
	}
	var payload struct {
		Number  int         `json:"number"`
		Winning []companion `json:"winning"`
		Machine []companion `json:"machine"`
	}
	recorder := fixture.do(t, http.MethodGet, "/categories/reveil/cooccurrence?number=1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	decodeBody(t, recorder, &payload)
	if payload.Number != 1 {
		t.Fatalf("expected number 1 echoed, got %d", payload.Number)
	}
	if len(payload.Winning) == 0 || payload.Winning[0].Number != 2 || payload.Winning[0].Count != 2 {
		t.Fatalf("expected winning 2 to lead with count 2, got %+v", payload.Winning)
	}
	if len(payload.Machine) != 5 || payload.Machine[0].Number != 2 || payload.Machine[0].Count != 1 {
		t.Fatalf("expected the five machine numbers of the matching draw, got %+v", payload.Machine)
	}

	for _, query := range []string{"number=91", "number=zero", ""} {
		if code := fixture.do(t, http.MethodGet, "/categories/reveil/cooccurrence?"+query, nil).Code; code != http.StatusBadRequest {
			t.Fatalf("query %q: expected status 400, got %d", query, code)
		}
	}
}

func TestPredictions(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.predictor.prediction = predict.Prediction{
		Numbers:  []predict.PredictedNumber{{Number: 17, Chance: "High"}},
		Analysis: "17 is hot.",
	}

	if code := fixture.do(t, http.MethodPost, "/categories/reveil/predictions", nil).Code; code != http.StatusNotFound {
		t.Fatalf("expected status 404 without history, got %d", code)
	}

	fixture.seed(t, testDraw("Reveil", "2025-05-05"))
	recorder := fixture.do(t, http.MethodPost, "/categories/reveil/predictions", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var payload struct {
		Category         string                    `json:"category"`
		PredictedNumbers []predict.PredictedNumber `json:"predicted_numbers"`
		Analysis         string                    `json:"analysis"`
	}
	decodeBody(t, recorder, &payload)
	if payload.Category != "Reveil" || len(payload.PredictedNumbers) != 1 || payload.Analysis != "17 is hot." {
		t.Fatalf("unexpected prediction payload %+v", payload)
	}

	fixture.predictor.err = errors.New("quota exceeded")
	if code := fixture.do(t, http.MethodPost, "/categories/reveil/predictions", nil).Code; code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", code)
	}
}

func TestPredictionsUnavailableWithoutGenerator(t *testing.T) {
	fixture := newRouterFixture(t, withoutPredictor())

	if code := fixture.do(t, http.MethodPost, "/categories/reveil/predictions", nil).Code; code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", code)
	}
}

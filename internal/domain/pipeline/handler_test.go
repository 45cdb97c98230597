package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(stages map[string]StageFunc) (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	svc := NewService(repo, stages, zerolog.Nop())
	return NewHandler(svc), repo, echo.New()
}

func TestTriggerRun(t *testing.T) {
	h, _, e := newTestHandler(map[string]StageFunc{
		StageLoad: func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"records_processed": 5}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("stage")
	c.SetParamValues("load")

	if err := h.TriggerRun(c); err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var run Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.Stage != StageLoad || run.Status != StatusSucceeded {
		t.Errorf("run = %s/%s, want load/succeeded", run.Stage, run.Status)
	}
}

func TestTriggerRunRejectsUntriggerableStage(t *testing.T) {
	h, _, e := newTestHandler(map[string]StageFunc{
		StageSeed: func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	})

	for _, stage := range []string{"seed", "fetch", "analytics", "nonsense"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("stage")
		c.SetParamValues(stage)

		err := h.TriggerRun(c)
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
			t.Errorf("stage %q: err = %v, want 400", stage, err)
		}
	}
}

func TestTriggerRunReportsFailure(t *testing.T) {
	h, _, e := newTestHandler(map[string]StageFunc{
		StageQA: func(ctx context.Context) (map[string]interface{}, error) {
			return nil, errors.New("warehouse unreachable")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("stage")
	c.SetParamValues("qa")

	if err := h.TriggerRun(c); err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var run Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.Status != StatusFailed {
		t.Errorf("run status = %s, want failed", run.Status)
	}
	if run.Detail["error"] != "warehouse unreachable" {
		t.Errorf("detail = %v, want the stage error", run.Detail)
	}
}

func TestGetRun(t *testing.T) {
	h, repo, e := newTestHandler(nil)

	run := &Run{RunID: uuid.New(), Stage: StageLoad, Status: StatusSucceeded}
	repo.Insert(context.Background(), run)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(run.RunID.String())

	if err := h.GetRun(c); err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	h, _, e := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetRun(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
}

func TestGetRunInvalidID(t *testing.T) {
	h, _, e := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.GetRun(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestListRuns(t *testing.T) {
	h, repo, e := newTestHandler(nil)
	repo.Insert(context.Background(), &Run{RunID: uuid.New(), Stage: StageLoad, Status: StatusSucceeded})
	repo.Insert(context.Background(), &Run{RunID: uuid.New(), Stage: StageQA, Status: StatusFailed})

	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRuns(c); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var runs []Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestListRunsInvalidLimit(t *testing.T) {
	h, _, e := newTestHandler(nil)

	for _, limit := range []string{"0", "-3", "9999", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/?limit="+limit, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := h.ListRuns(c)
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
			t.Errorf("limit %q: err = %v, want 400", limit, err)
		}
	}
}

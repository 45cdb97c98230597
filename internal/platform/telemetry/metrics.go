// Package telemetry exposes the pipeline's Prometheus collectors and the
// exposition endpoint for the ops server.
package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	stageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpipe_stage_runs_total",
			Help: "Total pipeline stage executions by outcome",
		},
		[]string{"stage", "status"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radpipe_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	rowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpipe_rows_written_total",
			Help: "Rows written to the operational store by entity",
		},
		[]string{"entity"},
	)

	recordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radpipe_records_skipped_total",
			Help: "Feed records skipped by the incremental filter",
		},
	)

	warehouseRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpipe_warehouse_rows_total",
			Help: "Rows written to warehouse tables per rebuild stage",
		},
		[]string{"table"},
	)

	qaChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpipe_qa_checks_total",
			Help: "QA check executions by status",
		},
		[]string{"status"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpipe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radpipe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Handler returns the Prometheus exposition handler adapted for echo.
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware records request counts and latencies per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				} else {
					status = 500
				}
			}
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordStage records one pipeline stage execution.
func RecordStage(stage string, d time.Duration, err error) {
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	stageRuns.WithLabelValues(stage, status).Inc()
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRowsWritten adds to the per-entity operational write counter.
func RecordRowsWritten(entity string, n int64) {
	rowsWritten.WithLabelValues(entity).Add(float64(n))
}

// RecordSkipped adds to the incremental-filter skip counter.
func RecordSkipped(n int) {
	recordsSkipped.Add(float64(n))
}

// RecordWarehouseRows adds to the per-table warehouse rebuild counter.
func RecordWarehouseRows(table string, n int64) {
	warehouseRows.WithLabelValues(table).Add(float64(n))
}

// RecordQACheck counts one QA check result by status.
func RecordQACheck(status string) {
	qaChecks.WithLabelValues(status).Inc()
}

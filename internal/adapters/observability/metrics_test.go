package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordMutation_Increments(t *testing.T) {
	before := testutil.ToFloat64(mutationCounter.WithLabelValues("update", ResultExpired))
	RecordMutation("update", ResultExpired)
	RecordMutation("update", ResultExpired)
	require.Equal(t, before+2, testutil.ToFloat64(mutationCounter.WithLabelValues("update", ResultExpired)))
}

func TestRecordSkipped_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(skippedCounter)
	RecordSkipped(0)
	RecordSkipped(-3)
	require.Equal(t, before, testutil.ToFloat64(skippedCounter))
	RecordSkipped(2)
	require.Equal(t, before+2, testutil.ToFloat64(skippedCounter))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveRequest(http.MethodGet, http.StatusOK, 15*time.Millisecond)
	ObserveQuery("activity", "QueryContext", time.Millisecond)
	RecordOutboxDelivery(ResultOK)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"activitylog_http_request_duration_seconds",
		"activitylog_db_query_duration_seconds",
		"activitylog_outbox_deliveries_total",
	} {
		require.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

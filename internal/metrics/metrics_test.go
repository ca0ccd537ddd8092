package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequests.WithLabelValues("GET", "/v1/summary", "200"))
	RecordAPIRequest("GET", "/v1/summary", 200)
	after := testutil.ToFloat64(APIRequests.WithLabelValues("GET", "/v1/summary", "200"))
	assert.Equal(t, before+1, after)
}

func TestObserveQuery(t *testing.T) {
	ObserveQuery("search", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, 1, testutil.CollectAndCount(DBQueryDuration, "catalog_db_query_duration_seconds"))
}

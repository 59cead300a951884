package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(StaleResponsesDiscarded.WithLabelValues("metrics-test"))
	StaleResponsesDiscarded.WithLabelValues("metrics-test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StaleResponsesDiscarded.WithLabelValues("metrics-test")))

	CircuitBreakerState.Set(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(CircuitBreakerState))
	CircuitBreakerState.Set(0)
}

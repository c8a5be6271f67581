package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/domain/documents"
	"tradeflow/internal/infrastructure/storage/postgres"
)

func TestDerivation_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDerivation(reg)

	m.Derived(documents.KindSalesInvoice)
	m.Derived(documents.KindSalesInvoice)
	m.LineSkipped(documents.KindSupplierLPO, "zero_quantity")
	m.ItemsAutoCreated(documents.KindPurchaseInvoice, 3)
	m.ItemsAutoCreated(documents.KindPurchaseInvoice, 0)
	m.Failed(documents.KindSalesInvoice, "REFERENTIAL_ERROR")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.derived.WithLabelValues("sales_invoice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("supplier_lpo", "zero_quantity")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.autoCreated.WithLabelValues("purchase_invoice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("sales_invoice", "REFERENTIAL_ERROR")))
}

func TestHTTP_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg)

	m.Observe("/api/v1/pricing/quote", "POST", 200, 15*time.Millisecond)
	m.Observe("", "GET", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/pricing/quote", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestRegisterPoolStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterPoolStats(reg, func() postgres.PoolStats {
		return postgres.PoolStats{TotalConns: 4, AcquiredConns: 1, IdleConns: 3, MaxConns: 10}
	})

	expected := `
# HELP tradeflow_db_pool_idle_conns Idle connections.
# TYPE tradeflow_db_pool_idle_conns gauge
tradeflow_db_pool_idle_conns 3
# HELP tradeflow_db_pool_max_conns Configured connection limit.
# TYPE tradeflow_db_pool_max_conns gauge
tradeflow_db_pool_max_conns 10
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tradeflow_db_pool_idle_conns", "tradeflow_db_pool_max_conns")
	require.NoError(t, err)
}

package observability

import (
	"bytes"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"creditpool/core/events"
	"creditpool/crypto"
	"creditpool/observability/logging"
)

func TestCreditMetricsRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCreditMetrics(reg)

	m.ObserveOperation("lend", "ok", 3*time.Millisecond)
	m.ObserveOperation("lend", "AmountTooSmall", time.Millisecond)
	m.ObserveOperation("lend", "ok", time.Millisecond)
	m.SetPool(big.NewInt(10_000_000), big.NewInt(10_001_500))

	require.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("lend", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("lend", "AmountTooSmall")))
	require.Equal(t, 10_000_000.0, testutil.ToFloat64(m.poolUnits))
	require.Equal(t, 10_001_500.0, testutil.ToFloat64(m.custody))

	count, err := testutil.GatherAndCount(reg, "creditpool_engine_operation_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCreditMetricsCountsEvents(t *testing.T) {
	m := NewCreditMetrics(nil)
	lender := crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{1}, crypto.AddressLength))
	m.Emit(events.CreditDeposit{Lender: lender, Amount: big.NewInt(1), Units: big.NewInt(1)})
	m.Emit(events.CreditDeposit{Lender: lender, Amount: big.NewInt(2), Units: big.NewInt(2)})
	m.Emit(nil)
	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(events.TypeCreditDeposit)))

	var nilMetrics *CreditMetrics
	nilMetrics.ObserveOperation("lend", "ok", 0)
	nilMetrics.SetPool(nil, nil)
}

func TestEventLogWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(&buf, slog.LevelInfo))
	eventLog, err := NewEventLog(logger)
	require.NoError(t, err)

	lender := crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{2}, crypto.AddressLength))
	eventLog.Emit(events.CreditWithdraw{Lender: lender, Amount: big.NewInt(5), BurnedUnits: big.NewInt(5), Closed: true})

	out := buf.String()
	require.True(t, strings.Contains(out, `"event":"credit.withdraw"`), out)
	require.True(t, strings.Contains(out, `"closed":"true"`), out)
	require.True(t, strings.Contains(out, `"component":"events"`), out)
}

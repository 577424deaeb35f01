package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPICall(t *testing.T) {
	API.CallsTotal.Reset()

	RecordAPICall("lenders", "success", 20*time.Millisecond)
	RecordAPICall("lenders", "success", 30*time.Millisecond)
	RecordAPICall("lenders", "api_error", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(API.CallsTotal.WithLabelValues("lenders", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(API.CallsTotal.WithLabelValues("lenders", "api_error")))
}

func TestRecordSchedulePersisted(t *testing.T) {
	Business.SchedulesPersistedTotal.Reset()

	RecordSchedulePersisted("success")
	RecordSchedulePersisted("failure")
	RecordSchedulePersisted("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(Business.SchedulesPersistedTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Business.SchedulesPersistedTotal.WithLabelValues("failure")))
}

func TestRecordCounters(t *testing.T) {
	plansBefore := testutil.ToFloat64(Business.PlansBuiltTotal)
	statementsBefore := testutil.ToFloat64(Business.StatementsExecutedTotal)

	RecordPlansBuilt(6)
	RecordStatementsExecuted(12)

	assert.Equal(t, plansBefore+6, testutil.ToFloat64(Business.PlansBuiltTotal))
	assert.Equal(t, statementsBefore+12, testutil.ToFloat64(Business.StatementsExecutedTotal))
}

func TestRecordDBQuery(t *testing.T) {
	DB.QueryDuration.Reset()

	RecordDBQuery("ExecuteStatements", "success", 5*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(DB.QueryDuration))
}

func TestRecordIntegrityAudit(t *testing.T) {
	Business.IntegrityAuditsTotal.Reset()

	RecordIntegrityAudit("match")
	RecordIntegrityAudit("mismatch")
	RecordIntegrityAudit("match")

	assert.Equal(t, 2.0, testutil.ToFloat64(Business.IntegrityAuditsTotal.WithLabelValues("match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Business.IntegrityAuditsTotal.WithLabelValues("mismatch")))
}

package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sharedTestRun() *Run {
	order := testRecord("order", "application", "server.port", StatusInconsistent, false, map[string]string{"PRO": "8080", "PRE": "8080"})
	billing := testRecord("billing", "application", "server.port", StatusInconsistent, false, map[string]string{"PRO": "8080", "PRE": "9090"})
	audit := testRecord("audit", "common", "server.port", StatusUnknown, true, map[string]string{"PRO": "8080"})
	timeout := testRecord("order", "application", "timeout", StatusFully, false, map[string]string{"PRO": "30", "PRE": "30"})

	// PRE 中为空值
	nullPort := newRecord(CompositeKey{Identifier: "gateway", Namespace: "application", Key: "server.port"})
	nullPort.set(Fragment{Env: "PRE", Value: nil, Modified: "2024-01-02 03:04:05"})

	run := &Run{
		Records:      make(map[CompositeKey]*Record),
		Environments: map[string]bool{"PRO": true, "PRE": true, "TEST": true, "DEV": false},
	}
	for _, rec := range []*Record{order, billing, audit, timeout, nullPort} {
		run.Records[rec.Key] = rec
	}
	return run
}

func TestRun_SharedValues(t *testing.T) {
	shared := sharedTestRun().SharedValues(Filter{})

	assert.NotContains(t, shared, "DEV")
	require.Contains(t, shared, "TEST")
	assert.Empty(t, shared["TEST"])

	require.Len(t, shared["PRO"], 1)
	assert.Equal(t, "server.port", shared["PRO"][0].Key)
	assert.Equal(t, "8080", shared["PRO"][0].Value)
	assert.Equal(t, []SharedSource{
		{Identifier: "audit", Namespace: "common"},
		{Identifier: "billing", Namespace: "application"},
		{Identifier: "order", Namespace: "application"},
	}, shared["PRO"][0].Sources)

	// PRE 中取值各不相同，空值不参与分组
	assert.Empty(t, shared["PRE"])
}

func TestRun_SharedValues_RespectsFilter(t *testing.T) {
	shared := sharedTestRun().SharedValues(Filter{Hide: []string{"skip"}})

	require.Len(t, shared["PRO"], 1)
	assert.Equal(t, []SharedSource{
		{Identifier: "billing", Namespace: "application"},
		{Identifier: "order", Namespace: "application"},
	}, shared["PRO"][0].Sources)

	shared = sharedTestRun().SharedValues(Filter{Identifier: "order"})
	assert.Empty(t, shared["PRO"])
}

func TestRun_SharedValues_SameKeyDifferentValues(t *testing.T) {
	run := sharedTestRun()
	extra := testRecord("report", "application", "server.port", StatusUnknown, false, map[string]string{"PRE": "9090"})
	run.Records[extra.Key] = extra

	shared := run.SharedValues(Filter{})
	require.Len(t, shared["PRE"], 1)
	assert.Equal(t, "9090", shared["PRE"][0].Value)
	assert.Len(t, shared["PRE"][0].Sources, 2)
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/configcomparer/compare"
)

func strPtr(s string) *string { return &s }

func envValue(v string) compare.EnvValue {
	return compare.EnvValue{Value: strPtr(v), Modified: strPtr("2024-03-09 14:05:07")}
}

// sampleRun PRO/PRE 查询成功，TEST 失败
func sampleRun() *compare.Run {
	timeout := compare.CompositeKey{Identifier: "order", Namespace: "application", Key: "timeout"}
	url := compare.CompositeKey{Identifier: "order", Namespace: "application", Key: "db.url"}
	flag := compare.CompositeKey{Identifier: "billing", Namespace: "application", Key: "feature"}

	return &compare.Run{
		ID:         "run-1",
		Backend:    compare.BackendApollo,
		StartedAt:  time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 3, 9, 14, 0, 2, 0, time.UTC),
		Environments: map[string]bool{
			"PRO": true, "PRE": true, "TEST": false, "DEV": false,
		},
		Records: map[compare.CompositeKey]*compare.Record{
			timeout: {
				Key:         timeout,
				Values:      map[string]compare.EnvValue{"PRO": envValue("30"), "PRE": envValue("30")},
				Consistency: compare.StatusFully,
			},
			url: {
				Key: url,
				Values: map[string]compare.EnvValue{
					"PRO": envValue("jdbc:mysql://pro\n/order"),
					"PRE": {},
				},
				Consistency: compare.StatusUnknown,
				Skipped:     true,
			},
			flag: {
				Key:         flag,
				Values:      map[string]compare.EnvValue{"PRO": envValue("on"), "PRE": envValue("off")},
				Consistency: compare.StatusInconsistent,
			},
		},
	}
}

// sharedRun 在 sampleRun 基础上让 billing 与 order 在 PRO 中共享 timeout=30
func sharedRun() *compare.Run {
	run := sampleRun()
	key := compare.CompositeKey{Identifier: "billing", Namespace: "application", Key: "timeout"}
	run.Records[key] = &compare.Record{
		Key:         key,
		Values:      map[string]compare.EnvValue{"PRO": envValue("30"), "PRE": {}},
		Consistency: compare.StatusUnknown,
	}
	return run
}

func TestWriteSharedTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSharedTable(&buf, newSharedView(sharedRun(), compare.Filter{})))

	out := buf.String()
	assert.Contains(t, out, "ENVIRONMENT")
	assert.Contains(t, out, "billing/application, order/application")
	assert.Contains(t, out, "shared values: 1 groups")
}

func TestNewSharedView_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, newSharedView(sharedRun(), compare.Filter{})))

	var decoded sharedView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	require.Len(t, decoded.Shared["PRO"], 1)
	assert.Equal(t, "timeout", decoded.Shared["PRO"][0].Key)
	assert.Equal(t, "30", decoded.Shared["PRO"][0].Value)
	assert.Empty(t, decoded.Shared["PRE"])
	assert.NotContains(t, decoded.Shared, "TEST")
}

func TestNewRunView(t *testing.T) {
	view := newRunView(sampleRun(), compare.Filter{})

	require.Len(t, view.Records, 3)
	assert.Equal(t, "billing", view.Records[0].Identifier)
	assert.Equal(t, "db.url", view.Records[1].Key)
	assert.Equal(t, "timeout", view.Records[2].Key)

	assert.Equal(t, 1, view.Counts[compare.StatusFully])
	assert.Equal(t, 0, view.Counts[compare.StatusPartially])

	hidden := newRunView(sampleRun(), compare.Filter{Hide: []string{"skip", "fully"}})
	require.Len(t, hidden.Records, 1)
	assert.Equal(t, "feature", hidden.Records[0].Key)
	// 统计不受过滤影响
	assert.Equal(t, 1, hidden.Counts[compare.StatusFully])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, newRunView(sampleRun(), compare.Filter{Identifier: "billing"})))

	var decoded struct {
		ID      string `json:"id"`
		Records []struct {
			Identifier  string `json:"identifier"`
			Consistency string `json:"consistency"`
			Values      map[string]struct {
				Value *string `json:"value"`
			} `json:"values"`
		} `json:"records"`
		Environments map[string]bool `json:"environments"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	require.Len(t, decoded.Records, 1)
	assert.Equal(t, "inconsistent", decoded.Records[0].Consistency)
	assert.Equal(t, "off", *decoded.Records[0].Values["PRE"].Value)
	assert.False(t, decoded.Environments["TEST"])
}

func TestWriteRunTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRunTable(&buf, newRunView(sampleRun(), compare.Filter{})))
	out := buf.String()

	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "IDENTIFIER")
	assert.Contains(t, lines[0], "CONSISTENCY")

	// 换行被压平，null 与未查询环境有各自的占位
	assert.Contains(t, out, "jdbc:mysql://pro /order")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "-")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "environments: DEV=unavailable PRE=ok PRO=ok TEST=unavailable")
	assert.Contains(t, out, "records: 3 shown, unknown=1 fully=1 partially=0 inconsistent=1")
}

func TestCell_Truncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := cell(long)
	assert.Equal(t, maxCellWidth, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "a b", cell("a\tb"))
}

func TestWriteProbeTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeProbeTable(&buf, []compare.ProbeResult{
		{Environment: "DEV", SSH: compare.ProbeSkipped, Database: compare.ProbeOK, Version: "8.0.32"},
		{Environment: "PRO", SSH: compare.ProbeFailed, SSHError: "auth failed", Database: compare.ProbeSkipped},
	}))
	out := buf.String()
	assert.Contains(t, out, "ENVIRONMENT")
	assert.Contains(t, out, "8.0.32")
	assert.Contains(t, out, "ssh: auth failed")
	assert.Contains(t, out, "not_tested")
}

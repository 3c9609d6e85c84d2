package metrics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedRecorder(namespace string) (*Recorder, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return NewWithLogger(namespace, &logger), &buf
}

func TestRecorder_FlushOutput(t *testing.T) {
	rec, buf := newBufferedRecorder("AreaCalc")
	rec.Dimension("Outcome", "success")
	rec.Metric("LatencyMs", 1234.5, UnitMilliseconds)
	rec.Count("Requests")
	rec.Property("requestId", "abc-123")
	rec.Flush()

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc), "output: %s", buf.String())

	assert.Equal(t, "AreaCalc", doc["namespace"])
	assert.Equal(t, "metrics", doc["message"])
	assert.Equal(t, "abc-123", doc["requestId"])

	dims := doc["dimensions"].(map[string]interface{})
	assert.Equal(t, "success", dims["Outcome"])

	values := doc["metrics"].(map[string]interface{})
	assert.Equal(t, 1234.5, values["LatencyMs"])
	assert.Equal(t, float64(1), values["Requests"])

	units := doc["units"].(map[string]interface{})
	assert.Equal(t, UnitMilliseconds, units["LatencyMs"])
	assert.Equal(t, UnitCount, units["Requests"])
}

func TestRecorder_FlushEmpty(t *testing.T) {
	rec, buf := newBufferedRecorder("Test")
	rec.Dimension("Outcome", "ignored")
	rec.Flush()
	assert.Zero(t, buf.Len(), "expected no output for a recorder without metrics")
}

func TestRecorder_Chaining(t *testing.T) {
	rec := New("Test").
		Dimension("Op", "test").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	assert.Equal(t, "test", rec.dimensions["Op"])
	assert.Equal(t, float64(100), rec.metrics["Duration"].Value)
	assert.Equal(t, float64(1), rec.metrics["Calls"].Value)
	assert.Equal(t, UnitCount, rec.metrics["Calls"].Unit)
	assert.Equal(t, "xyz", rec.properties["id"])
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WarnLevel)

	l.Info("should not appear")
	require.Empty(t, buf.String())

	l.Warn("should appear", String("key", "value"))
	require.NotEmpty(t, buf.String())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "WARN", entry["level"])
	require.Equal(t, "value", entry["key"])
}

func TestWithFieldsInherited(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, DebugLevel)
	scoped := base.WithFields(String("component", "test"))

	scoped.Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "test", entry["component"])
	require.Equal(t, "hello", entry["msg"])
}

func TestSetGetLevel(t *testing.T) {
	l := NewLogger(&bytes.Buffer{}, InfoLevel)
	require.Equal(t, InfoLevel, l.GetLevel())
	l.SetLevel(ErrorLevel)
	require.Equal(t, ErrorLevel, l.GetLevel())
}

func TestTextFormatRendersKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithFormat(&buf, InfoLevel, TextFormat)

	l.Info("hello", String("component", "test"))

	require.Contains(t, buf.String(), "INFO hello")
	require.Contains(t, buf.String(), "component=test")
}

func TestParseLevelAndFormat(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLevel("debug"))
	require.Equal(t, ErrorLevel, ParseLevel("ERROR"))
	require.Equal(t, InfoLevel, ParseLevel("unknown"))

	require.Equal(t, TextFormat, ParseFormat("text"))
	require.Equal(t, JSONFormat, ParseFormat("json"))
	require.Equal(t, JSONFormat, ParseFormat(""))
}

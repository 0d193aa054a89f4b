// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperbot/vesper/internal/logging"
)

func TestSetup_JSONIncludesServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("vesper", "1.0.0", "json", &buf)

	logger.Info("plugin registered", "plugin", "ping")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vesper", record["service"])
	assert.Equal(t, "1.0.0", record["version"])
	assert.Equal(t, "plugin registered", record["msg"])
	assert.Equal(t, "ping", record["plugin"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("vesper", "1.0.0", "text", &buf)

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "service=vesper")
}

func TestSetup_WithAttrsPreservesIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("vesper", "1.0.0", "json", &buf).With("component", "manager")

	logger.Warn("something odd")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vesper", record["service"])
	assert.Equal(t, "manager", record["component"])
}

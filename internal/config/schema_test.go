// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgz/accounts/internal/config"
	"github.com/drgz/accounts/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"http", "metrics", "log", "database", "mail"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Secrets")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "empty", yaml: ""},
		{name: "valid", yaml: "http:\n  addr: \":8080\"\n  shutdown_timeout: 10s\nlog:\n  format: text\n"},
		{name: "unknown key", yaml: "http:\n  port: 8080\n", wantErr: true},
		{name: "bad enum", yaml: "log:\n  format: xml\n", wantErr: true},
		{name: "bad duration", yaml: "mail:\n  send_timeout: soon\n", wantErr: true},
		{name: "wrong type", yaml: "database:\n  connect_retries: many\n", wantErr: true},
		{name: "malformed yaml", yaml: "http: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateSchema([]byte(tt.yaml))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestValidateFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, "ok.yaml", "http:\n  addr: \":8080\"\n")
		cfg, err := config.ValidateFile(path)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "secrets:\n  secret_key: x\n")
		_, err := config.ValidateFile(path)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		errutil.AssertErrorContext(t, err, "path", path)
	})

	t.Run("semantic violation", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "mail:\n  domain: not-a-url\n")
		_, err := config.ValidateFile(path)
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "field", "mail.domain")
	})
}

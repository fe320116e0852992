// filepath: internal/grid/token_test.go
package grid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := New("products").
		Columns("name", "price").
		Searchable("name").
		Fields("name", "price").
		Build()
	require.NoError(t, err)
	return cfg
}

func TestSignAndVerifyConfig(t *testing.T) {
	cfg := testConfig(t)

	token, err := SignConfig(cfg, "test-secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := VerifyConfig(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, cfg.Table, got.Table)
	assert.Equal(t, cfg.PrimaryKey, got.PrimaryKey)
	assert.Len(t, got.Columns, 2)
	assert.True(t, got.Columns[0].Searchable)
}

func TestVerifyConfigRejectsWrongSecret(t *testing.T) {
	token, err := SignConfig(testConfig(t), "test-secret")
	require.NoError(t, err)

	_, err = VerifyConfig(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyConfigRejectsTampering(t *testing.T) {
	token, err := SignConfig(testConfig(t), "test-secret")
	require.NoError(t, err)

	// Flip part of the payload segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	payload[len(payload)/2] ^= 1
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = VerifyConfig(tampered, "test-secret")
	assert.Error(t, err)
}

func TestVerifyConfigRejectsGarbage(t *testing.T) {
	_, err := VerifyConfig("not-a-token", "test-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

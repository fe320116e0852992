// filepath: internal/grid/hooks_test.go
package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRegistryRun(t *testing.T) {
	reg := NewHookRegistry()
	reg.Register("stamp", func(ctx context.Context, row map[string]interface{}) error {
		row["stamped"] = true
		return nil
	})

	row := map[string]interface{}{}
	require.NoError(t, reg.Run(context.Background(), "stamp", row))
	assert.Equal(t, true, row["stamped"])
}

func TestHookRegistryEmptyNameIsNoop(t *testing.T) {
	reg := NewHookRegistry()
	assert.NoError(t, reg.Run(context.Background(), "", nil))
}

func TestHookRegistryUnknownName(t *testing.T) {
	reg := NewHookRegistry()
	err := reg.Run(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownHook)
}

func TestHookRegistryErrorPropagates(t *testing.T) {
	reg := NewHookRegistry()
	boom := errors.New("boom")
	reg.Register("fail", func(ctx context.Context, row map[string]interface{}) error {
		return boom
	})
	assert.ErrorIs(t, reg.Run(context.Background(), "fail", nil), boom)
}

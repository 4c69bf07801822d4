package capability

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/types"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry(nil)

	h := NewHandlerFunc("echo", func(ctx context.Context, input string) (*types.TaskResult, error) {
		return types.SuccessResult(map[string]any{"echo": input}), nil
	})
	reg.Register(types.KindWebSearch, h)

	got, ok := reg.Get(types.KindWebSearch)
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name())

	_, ok = reg.Get(types.KindSlack)
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryReplaceKeepsSingleBinding(t *testing.T) {
	reg := NewRegistry(nil)
	first := NewHandlerFunc("first", func(ctx context.Context, input string) (*types.TaskResult, error) {
		return types.SuccessResult(nil), nil
	})
	second := NewHandlerFunc("second", func(ctx context.Context, input string) (*types.TaskResult, error) {
		return types.SuccessResult(nil), nil
	})

	reg.Register(types.KindEmail, first)
	reg.Register(types.KindEmail, second)

	got, ok := reg.Get(types.KindEmail)
	require.True(t, ok)
	assert.Equal(t, "second", got.Name())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryKindsSorted(t *testing.T) {
	reg := NewRegistry(nil)
	noop := NewHandlerFunc("noop", func(ctx context.Context, input string) (*types.TaskResult, error) {
		return types.SuccessResult(nil), nil
	})
	reg.Register(types.KindWebSearch, noop)
	reg.Register(types.KindEmail, noop)
	reg.Register(types.KindCodeGeneration, noop)

	assert.Equal(t, []types.TaskKind{
		types.KindCodeGeneration,
		types.KindEmail,
		types.KindWebSearch,
	}, reg.Kinds())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry(nil)
	noop := NewHandlerFunc("noop", func(ctx context.Context, input string) (*types.TaskResult, error) {
		return types.SuccessResult(nil), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Register(types.KindSlack, noop)
		}()
		go func() {
			defer wg.Done()
			reg.Get(types.KindSlack)
		}()
	}
	wg.Wait()

	_, ok := reg.Get(types.KindSlack)
	assert.True(t, ok)
}

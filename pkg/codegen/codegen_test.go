package codegen

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestClassCodeShape(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := ClassCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		assert.True(t, IsClassCode(code))
	}
}

func TestUniqueClassCodeUnderConcurrentCreation(t *testing.T) {
	const total = 10000

	var (
		mu    sync.Mutex
		taken = make(map[string]struct{}, total)
		wg    sync.WaitGroup
		errs  = make(chan error, total)
	)

	// claim mimics the insert guarded by the unique constraint: check and reserve atomically.
	claim := func(_ context.Context, code string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := taken[code]; ok {
			return true, nil
		}
		taken[code] = struct{}{}
		return false, nil
	}

	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < total/20; i++ {
				code, err := UniqueClassCode(context.Background(), 10, claim)
				if err != nil {
					errs <- err
					return
				}
				if !codePattern.MatchString(code) {
					errs <- assert.AnError
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, taken, total)
}

func TestUniqueClassCodeExhausted(t *testing.T) {
	calls := 0
	_, err := UniqueClassCode(context.Background(), 3, func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestStreamKey(t *testing.T) {
	first, err := StreamKey()
	require.NoError(t, err)
	second, err := StreamKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^[A-Z0-9_]+$`, first)
	assert.GreaterOrEqual(t, len(first), 12)
	assert.LessOrEqual(t, len(first), 22)
}

func TestNormalizeClassCode(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeClassCode("  abc123 "))
}

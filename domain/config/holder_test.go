package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderDefaultsWhenNil(t *testing.T) {
	h := NewHolder(nil)
	require.NotNil(t, h.Current())
	assert.Equal(t, DefaultDomainConfig(), h.Current())
}

func TestHolderSwapReplacesPointer(t *testing.T) {
	h := NewHolder(DefaultDomainConfig())
	before := h.Current()

	next := DefaultDomainConfig()
	next.MaxCommentsPerIssue = 10
	h.Store(next)

	assert.Equal(t, 10, h.Current().MaxCommentsPerIssue)
	// The previously handed-out config is untouched
	assert.Equal(t, 150, before.MaxCommentsPerIssue)
}

func TestHolderIgnoresNilStore(t *testing.T) {
	h := NewHolder(DefaultDomainConfig())
	h.Store(nil)
	require.NotNil(t, h.Current())
}

func TestHolderConcurrentSwapAndRead(t *testing.T) {
	h := NewHolder(DefaultDomainConfig())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			next := DefaultDomainConfig()
			next.MaxCommentsPerIssue = i
			h.Store(next)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cfg := h.Current()
			assert.GreaterOrEqual(t, cfg.MaxCommentsPerIssue, 0)
		}
	}()
	wg.Wait()
}

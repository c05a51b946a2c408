package gitutil

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestIsRepoURL(t *testing.T) {
	assert.True(t, IsRepoURL("https://github.com/golang/go"))
	assert.True(t, IsRepoURL("git@github.com:golang/go.git"))
	assert.False(t, IsRepoURL("/tmp/checkout"))
	assert.False(t, IsRepoURL("./relative"))
}

func TestCloneRejectsLocalPath(t *testing.T) {
	c := NewCloner(NewPool(1))
	_, err := c.Clone(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestPoolLimitsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var current, peak atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return pool.Run(context.Background(), func() error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				current.Add(-1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestNilPoolRunsDirectly(t *testing.T) {
	var p *Pool
	ran := false
	require.NoError(t, p.Run(context.Background(), func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "fatal: repo not found", firstLine("fatal: repo not found\nmore\n"))
	assert.Equal(t, "single", firstLine("single"))
}

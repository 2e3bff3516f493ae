package engine

import (
	goruntime "runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbandonedGeneratorsAreReaped(t *testing.T) {
	c, _ := newTestContext(t)
	before := goruntime.NumGoroutine()

	_, err := c.Eval(`
		function* g() { yield 1; yield 2 }
		for (let i = 0; i < 500; i++) {
			const it = g();
			it.next();
		}
	`)
	require.NoError(t, err)
	require.Positive(t, c.Agent().LiveCoroutines())

	for i := 0; i < 50 && c.Agent().LiveCoroutines() > 0; i++ {
		goruntime.GC()
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, c.RunJobs())
	}
	assert.Zero(t, c.Agent().LiveCoroutines())
	assert.Eventually(t, func() bool { return goruntime.NumGoroutine() <= before+8 },
		time.Second, 10*time.Millisecond)
}

func TestReachableGeneratorsSurviveReaping(t *testing.T) {
	c, _ := newTestContext(t)
	_, err := c.Eval(`function* g() { yield 1; yield 2 } var kept = g(); kept.next()`)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		goruntime.GC()
		require.NoError(t, c.RunJobs())
	}
	assert.Equal(t, 1, c.Agent().LiveCoroutines())
	v, err := c.Eval(`kept.next().value`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.Float())
}

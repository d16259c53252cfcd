package print

import (
	"testing"

	printdrv "capsule/capsuleos/drivers/print"
	"capsule/capsuleos/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lines []string

func (l *lines) WriteLineString(s string) { *l = append(*l, s) }

func runOnce(t *testing.T, k *kernel.Kernel, fn func(*kernel.Context)) {
	t.Helper()
	_, err := k.LoadProcess(t.Name(), kernel.AppFunc(func(ctx *kernel.Context) {
		fn(ctx)
		ctx.Exit(0)
	}))
	require.NoError(t, err)
	k.RunUntilIdle(10)
}

func TestClientRoundTrip(t *testing.T) {
	k := kernel.New(kernel.WithMemorySize(64))
	t.Cleanup(func() { _ = k.Close() })
	var out lines
	_, err := printdrv.Register(k, k.MintCapability(kernel.RightMemoryAllocation), &out)
	require.NoError(t, err)

	runOnce(t, k, func(ctx *kernel.Context) {
		require.NoError(t, Ack(ctx))
		require.NoError(t, Print(ctx, 4, []byte("one")))
		require.NoError(t, Print(ctx, 10, []byte("three")))

		prevAddr, prevLen, err := Allow(ctx, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, uint32(10), prevAddr)
		assert.Equal(t, uint32(5), prevLen)
		require.NoError(t, Flush(ctx))

		n, err := Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(11), n)

		assert.ErrorIs(t, Write(ctx, 60, []byte("too long")), kernel.ErrSize)
		_, _, err = Allow(ctx, 60, 8)
		assert.ErrorIs(t, err, kernel.ErrInval)
	})

	assert.Equal(t, lines{"one", "three", "one"}, out)
}

func TestClientWithoutDriver(t *testing.T) {
	k := kernel.New()
	t.Cleanup(func() { _ = k.Close() })

	runOnce(t, k, func(ctx *kernel.Context) {
		assert.ErrorIs(t, Ack(ctx), kernel.ErrNoDevice)
		assert.ErrorIs(t, Print(ctx, 0, []byte("x")), kernel.ErrNoDevice)
		_, err := Count(ctx)
		assert.ErrorIs(t, err, kernel.ErrNoDevice)
	})
}

package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeAndChannels(t *testing.T) {
	tests := map[string]struct {
		format   Format
		size     int
		channels int
	}{
		"undefined":   {Undefined, 0, 0},
		"r8":          {R8UNorm, 1, 1},
		"rgba8":       {R8G8B8A8UNorm, 4, 4},
		"bgra8 srgb":  {B8G8R8A8SRGB, 4, 4},
		"rgb32 float": {R32G32B32SFloat, 12, 3},
		"rgba32 uint": {R32G32B32A32UInt, 16, 4},
		"d24s8":       {D24UNormS8UInt, 4, 2},
		"d32s8":       {D32SFloatS8UInt, 5, 2},
		"bc1 block":   {BC1RGBUNorm, 8, 4},
		"bc7 block":   {BC7UNorm, 16, 4},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.size, Size(test.format))
			require.Equal(t, test.channels, ChannelCount(test.format))
		})
	}
}

func TestPredicates(t *testing.T) {
	require.True(t, IsNorm(R8G8B8A8UNorm))
	require.False(t, IsInt(R8G8B8A8UNorm))
	require.False(t, IsFloat(R8G8B8A8UNorm))
	require.False(t, IsSRGB(R8G8B8A8UNorm))

	require.True(t, IsSRGB(B8G8R8A8SRGB))
	require.True(t, IsNorm(B8G8R8A8SRGB))

	require.True(t, IsInt(R32G32UInt))
	require.True(t, IsFloat(R16G16SFloat))

	require.True(t, IsDepthStencil(D16UNorm))
	require.True(t, IsDepthStencil(S8UInt))
	require.False(t, IsDepthStencil(R8UNorm))

	require.True(t, IsCompressed(BC6UFloat))
	require.True(t, IsFloat(BC6UFloat))
	require.False(t, IsCompressed(R8G8B8A8UNorm))
}

func TestOutOfRangeIsUndefined(t *testing.T) {
	require.Equal(t, 0, Size(Format(-1)))
	require.Equal(t, 0, Size(formatCount))
	require.Equal(t, 0, ChannelCount(Format(9999)))
	require.False(t, IsNorm(Format(-1)))
}

func TestString(t *testing.T) {
	require.Equal(t, "R8G8B8A8SRGB", R8G8B8A8SRGB.String())
	require.Equal(t, "D32SFloatS8UInt", D32SFloatS8UInt.String())
	require.Equal(t, "unknown format: 9999", Format(9999).String())
}

func TestTableIsComplete(t *testing.T) {
	for f := Undefined + 1; f < formatCount; f++ {
		require.Greater(t, Size(f), 0, "format %s has no size", f)
		require.Greater(t, ChannelCount(f), 0, "format %s has no channels", f)
		_, named := formatNames[f]
		require.True(t, named, "format %d has no name", int32(f))
	}
}

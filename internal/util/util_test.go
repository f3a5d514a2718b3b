package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, Hash("$WIF"), Hash("$WIF"))
	assert.NotEqual(t, Hash("$WIF"), Hash("$PEPE"))
	assert.Equal(t, int32(-2128831035), Hash(""))
}

func TestJavaHashMatchesKnownValues(t *testing.T) {
	assert.Equal(t, int32(0), JavaHash(""))
	assert.Equal(t, int32(97), JavaHash("a"))
	assert.Equal(t, int32(99162322), JavaHash("hello"))
}

func TestIndexHandlesMinInt(t *testing.T) {
	assert.Equal(t, int(int64(math.MaxInt32+1)%6), Index(math.MinInt32, 6))
	assert.Equal(t, 2, Index(-8, 6))
	for _, h := range []int32{0, 1, -1, 12345, -98765} {
		i := Index(h, 4)
		assert.True(t, i >= 0 && i < 4)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ABC", Truncate("ABC", 3, "…"))
	assert.Equal(t, "AB…", Truncate("ABC", 2, "…"))
}

func TestTruncateUTF16(t *testing.T) {
	assert.Equal(t, 2, UTF16Len("🚀"))
	assert.Equal(t, "ABC", TruncateUTF16("ABC", 3, "…"))
	assert.Equal(t, "A🚀…", TruncateUTF16("A🚀BC", 3, "…"))
	assert.Equal(t, "A\uFFFD…", TruncateUTF16("A🚀BC", 2, "…"))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "RIP $WIF", NormalizeWhitespace("  RIP \n\t $WIF "))
}

func TestContainsAnyCaseInsensitive(t *testing.T) {
	assert.True(t, ContainsAnyCaseInsensitive("please DOX him", []string{"dox"}))
	assert.False(t, ContainsAnyCaseInsensitive("$WIF", []string{"dox"}))
}

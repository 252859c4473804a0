package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDUnique(t *testing.T) {
	Init(1)

	const n = 10000
	seen := make(map[int64]struct{}, n)
	var prev int64

	for i := 0; i < n; i++ {
		id := NextID()
		_, dup := seen[id]
		require.False(t, dup, "重复ID: %d", id)
		seen[id] = struct{}{}
		require.Greater(t, id, prev, "ID必须递增")
		prev = id
	}
}

func TestGeneratePaymentNo(t *testing.T) {
	no := GeneratePaymentNo()

	assert.True(t, strings.HasPrefix(no, "PMT"))
	assert.Len(t, no, 3+14+8) // 前缀 + 年月日时分秒 + 8位数字
	for _, c := range no[3:] {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestGenerateTransactionNo(t *testing.T) {
	no := GenerateTransactionNo()

	assert.True(t, strings.HasPrefix(no, "TXN"))
	assert.Len(t, no, 3+14+8)
}

func TestGenerateCouponCode(t *testing.T) {
	code := GenerateCouponCode(8)
	assert.Len(t, code, 8)

	// 字符集不含易混淆的 0/O/1/I/L
	for i := 0; i < 100; i++ {
		c := GenerateCouponCode(16)
		assert.Len(t, c, 16)
		for _, ch := range c {
			assert.Contains(t, couponCodeAlphabet, string(ch))
			assert.NotContains(t, "0O1IL", string(ch))
		}
	}

	// 长度不合法时回退到默认8位
	assert.Len(t, GenerateCouponCode(0), 8)
	assert.Len(t, GenerateCouponCode(-3), 8)
}

func TestGenerateResetCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateResetCode()
		require.Len(t, code, 6)
		for _, ch := range code {
			require.True(t, ch >= '0' && ch <= '9')
		}
	}
}

package idgen

import (
	"crypto/rand"
	"math/big"
)

// 券码字符集去掉了易混淆的 0/O/1/I/L
const couponCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateCouponCode 生成随机券码
// 不保证全局唯一，唯一性靠 code 列的唯一索引兜底，撞码由调用方换码重试
func GenerateCouponCode(length int) string {
	if length <= 0 {
		length = 8
	}

	buf := make([]byte, length)
	max := big.NewInt(int64(len(couponCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 读不出来说明系统随机源坏了，没有降级余地
			panic(err)
		}
		buf[i] = couponCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// GenerateResetCode 生成6位数字验证码
func GenerateResetCode() string {
	const digits = "0123456789"
	buf := make([]byte, 6)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanCouponTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"待审核到批准", CouponStatusPending, CouponStatusApproved, true},
		{"待审核到驳回", CouponStatusPending, CouponStatusRejected, true},
		{"批准到核销", CouponStatusApproved, CouponStatusUsed, true},
		{"待审核不能直接核销", CouponStatusPending, CouponStatusUsed, false},
		{"驳回是终态", CouponStatusRejected, CouponStatusApproved, false},
		{"核销是终态", CouponStatusUsed, CouponStatusApproved, false},
		{"核销不能回到批准", CouponStatusUsed, CouponStatusPending, false},
		{"批准不能退回待审核", CouponStatusApproved, CouponStatusPending, false},
		{"未知状态", "UNKNOWN", CouponStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanCouponTransitionTo(tt.from, tt.to))
		})
	}
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransactionTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"待处理到处理中", TransactionStatusPending, TransactionStatusProcessing, true},
		{"待处理到失败", TransactionStatusPending, TransactionStatusFailed, true},
		{"处理中到成功", TransactionStatusProcessing, TransactionStatusSuccess, true},
		{"处理中到完成", TransactionStatusProcessing, TransactionStatusComplete, true},
		{"处理中到失败", TransactionStatusProcessing, TransactionStatusFailed, true},
		{"成功到完成", TransactionStatusSuccess, TransactionStatusComplete, true},
		{"待处理不能跳到成功", TransactionStatusPending, TransactionStatusSuccess, false},
		{"完成是终态", TransactionStatusComplete, TransactionStatusSuccess, false},
		{"失败是终态", TransactionStatusFailed, TransactionStatusProcessing, false},
		{"成功不能失败", TransactionStatusSuccess, TransactionStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransactionTransitionTo(tt.from, tt.to))
		})
	}
}

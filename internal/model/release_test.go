package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanReleaseTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"资料补全", ReleaseStatusIncomplete, ReleaseStatusUnpaid, true},
		{"支付后进入审核", ReleaseStatusUnpaid, ReleaseStatusProcessing, true},
		{"审核通过", ReleaseStatusProcessing, ReleaseStatusApproved, true},
		{"审核驳回", ReleaseStatusProcessing, ReleaseStatusRejected, true},
		{"通过后上线", ReleaseStatusApproved, ReleaseStatusLive, true},
		{"驳回后重新提审", ReleaseStatusRejected, ReleaseStatusProcessing, true},
		{"未支付不能直接上线", ReleaseStatusUnpaid, ReleaseStatusLive, false},
		{"资料未齐不能支付", ReleaseStatusIncomplete, ReleaseStatusProcessing, false},
		{"上线是终态", ReleaseStatusLive, ReleaseStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanReleaseTransitionTo(tt.from, tt.to))
		})
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"musicdist/internal/infrastructure/lock"
	"musicdist/internal/repository"
	"musicdist/internal/service"
	"musicdist/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorBusinessCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code int
	}{
		// 锁竞争是可重试的繁忙，不能混进500
		{"锁竞争", fmt.Errorf("系统繁忙，请稍后重试: %w", lock.ErrLockFailed), response.CodeSystemBusy},
		{"乐观锁冲突", repository.ErrOptimisticLock, response.CodeSystemBusy},
		{"余额不足", repository.ErrBalanceNotEnough, response.CodeInsufficientBalance},
		{"用户不存在", repository.ErrUserNotFound, response.CodeUserNotFound},
		{"券码无效", repository.ErrCouponNotFound, response.CodeCouponNotFound},
		{"券已失效", service.ErrCouponNotUsable, response.CodeCouponNotUsable},
		{"购物车不一致", service.ErrCartMismatch, response.CodeCartMismatch},
		{"核销并发冲突", repository.ErrCouponConflict, response.CodeCouponConflict},
		{"非本人的券", service.ErrCouponNotOwner, response.CodeForbidden},
		{"未知错误兜底", errors.New("boom"), response.CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			writeError(c, tt.err)

			var resp response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

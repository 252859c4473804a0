package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrResetCodeNotFound = errors.New("验证码不存在或已过期")
	ErrResetCodeMismatch = errors.New("验证码错误")
)

// ResetCodeStore 密码重置验证码存储
//
// 验证码必须放在带过期的共享存储里而不是进程内存：
// 服务多实例部署时请求不保证落在同一个实例，进程内的列表互相看不见，
// 重启还会把未使用的验证码全部丢掉。Redis 的 TTL 顺便解决过期清理
type ResetCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResetCodeStore(client *redis.Client, ttl time.Duration) *ResetCodeStore {
	return &ResetCodeStore{
		client: client,
		ttl:    ttl,
	}
}

func resetCodeKey(email string) string {
	return fmt.Sprintf("reset:code:%s", email)
}

// Set 写入验证码，同邮箱重复申请直接覆盖旧码
func (s *ResetCodeStore) Set(ctx context.Context, email, code string) error {
	return s.client.Set(ctx, resetCodeKey(email), code, s.ttl).Err()
}

// Verify 校验并消费验证码
// GETDEL 语义：校验通过即删除，一个验证码只能用一次
func (s *ResetCodeStore) Verify(ctx context.Context, email, code string) error {
	key := resetCodeKey(email)

	stored, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetCodeNotFound
		}
		return err
	}

	if stored != code {
		return ErrResetCodeMismatch
	}

	// 校验通过后删除，删除失败只会让验证码在TTL内多活一会，可容忍
	return s.client.Del(ctx, key).Err()
}

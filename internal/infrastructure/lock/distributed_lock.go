package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 提现场景：同一用户连点两次提现按钮（或网络重试），两个请求同时进来
//
// 没有锁的话：
//   请求1: 查余额=10000 -> 扣款10000 -> 余额=0
//   请求2: 查余额=10000 -> 扣款10000 -> 超扣！
//
// 加锁之后：
//   请求1: 获取锁 -> 查余额 -> 扣款 -> 释放锁
//   请求2: 等锁 -> 查余额=0 -> 余额不足，拒绝
//
// 条件 UPDATE（balance >= amount）是最后一道防线，锁把同一用户的提现
// 串行起来，让大多数冲突在进事务之前就被挡掉
//
// 加锁：SET key value NX EX timeout（NX 保证互斥，EX 防止死锁）
// 释放：Lua 脚本先验 value 再删 key，避免误删别人的锁
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 锁持有者标识，释放时验证
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本保证"检查+删除"的原子性：锁过期后被别人持有时，
// 过期的持有者不会删掉新持有者的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewWithdrawLock 创建提现锁（按用户维度）
//
// 按用户加锁：不同用户的提现互不影响，同一用户的提现串行——
// 这正是"余额校验+扣减"需要线性化的粒度
func NewWithdrawLock(client *redis.Client, userID int64) *DistributedLock {
	key := fmt.Sprintf("withdraw:lock:user:%d", userID)
	value := fmt.Sprintf("%d", time.Now().UnixNano())
	return NewDistributedLock(client, key, value, 30*time.Second)
}

package service

import (
	"context"
	"log"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/infrastructure/cache"
	"musicdist/internal/notify"
	"musicdist/internal/repository"
	"musicdist/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// AuthService 密码重置验证码流程
// 只负责验证码的发放和校验，改密/登录态不在这里
type AuthService struct {
	cfg       *config.Config
	mailer    *notify.Mailer
	userRepo  *repository.UserRepository
	codeStore *cache.ResetCodeStore
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthService {
	ttl := time.Duration(cfg.Business.ResetCodeTTLMinutes) * time.Minute
	return &AuthService{
		cfg:       cfg,
		mailer:    notify.NewMailer(db, cfg),
		userRepo:  repository.NewUserRepository(db),
		codeStore: cache.NewResetCodeStore(redisClient, ttl),
	}
}

// RequestResetCode 发放验证码
// 用户不存在时也返回成功，不给撞库的人探测邮箱是否注册的机会
func (s *AuthService) RequestResetCode(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			log.Printf("重置码请求命中未注册邮箱: %s", email)
			return nil
		}
		return err
	}

	code := idgen.GenerateResetCode()
	if err := s.codeStore.Set(ctx, email, code); err != nil {
		return err
	}

	if mailErr := s.mailer.SendResetCode(ctx, user.Email, user.FullName(), code); mailErr != nil {
		log.Printf("重置码通知写入失败: email=%s, err=%v", email, mailErr)
	}

	return nil
}

// VerifyResetCode 校验验证码，通过即消费
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	return s.codeStore.Verify(ctx, email, code)
}

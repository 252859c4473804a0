package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/infrastructure/lock"
	"musicdist/internal/model"
	"musicdist/internal/notify"
	"musicdist/internal/repository"
	"musicdist/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount = errors.New("金额必须大于0")
	ErrEmptyCart     = errors.New("购物车为空")
)

// 服务依赖收敛成小接口，仓储实现天然满足，单测换成内存假实现
// （与 job 包的 ReleaseStore/UserStore 同一套做法）

type userStore interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	Deduct(ctx context.Context, tx *gorm.DB, userID int64, amount int64, version int) error
}

type transactionStore interface {
	Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error
	GetByTransactionNo(ctx context.Context, transactionNo string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, transactionNo string, fromStatus, toStatus string) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error)
}

type paymentStore interface {
	Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
}

type cartStore interface {
	RemoveByReleaseID(ctx context.Context, userID, releaseID int64) error
}

type releaseStore interface {
	MarkProcessing(ctx context.Context, releaseID int64, paymentNo string) error
}

type walletNotifier interface {
	SendWithdrawalReceived(ctx context.Context, tx *gorm.DB, email, name, transactionNo string, amount int64, currency string) error
	SendPaymentReceipt(ctx context.Context, tx *gorm.DB, email, name, paymentNo string, paidAmount int64) error
}

type withdrawLocker interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// WalletService 钱包/流水服务
// 提现扣款和支付入账是整个系统仅有的两处资金落账点，
// 都必须保证余额变动和流水记录要么同时生效要么都不生效
type WalletService struct {
	cfg             *config.Config
	mailer          walletNotifier
	userRepo        userStore
	releaseRepo     releaseStore
	cartRepo        cartStore
	paymentRepo     paymentStore
	transactionRepo transactionStore
	runInTx         func(fn func(tx *gorm.DB) error) error
	newLock         func(userID int64) withdrawLocker
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WalletService {
	return &WalletService{
		cfg:             cfg,
		mailer:          notify.NewMailer(db, cfg),
		userRepo:        repository.NewUserRepository(db),
		releaseRepo:     repository.NewReleaseRepository(db),
		cartRepo:        repository.NewCartRepository(db),
		paymentRepo:     repository.NewPaymentRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		runInTx: func(fn func(tx *gorm.DB) error) error {
			return db.Transaction(fn)
		},
		newLock: func(userID int64) withdrawLocker {
			return lock.NewWithdrawLock(redisClient, userID)
		},
	}
}

// ============================================================
// 提现
// ============================================================

type WithdrawRequest struct {
	UserID         int64                   `json:"user_id" binding:"required"`
	Amount         int64                   `json:"amount" binding:"required,gt=0"` // 分
	Currency       string                  `json:"currency" binding:"required,len=3"`
	Narration      string                  `json:"narration"`
	Quote          model.ExchangeRateQuote `json:"quote" binding:"required"`
	PayoutMethodID int64                   `json:"payout_method_id" binding:"required"`
	AccountName    string                  `json:"account_name" binding:"required"`
	AccountNumber  string                  `json:"account_number" binding:"required"`
	BankName       string                  `json:"bank_name" binding:"required"`
}

type WithdrawResponse struct {
	TransactionNo string `json:"transaction_no"`
	Amount        int64  `json:"amount"`
	Balance       int64  `json:"balance"`
	Status        string `json:"status"`
}

// Withdraw 提现扣款
//
// 【关键点】这是真金白银离开账本的唯一入口，必须保证：
// 1. 余额校验和扣减线性化：同一用户并发两笔提现，即使各自读到余额足够，
//    也不能都成功（分布式锁 + 条件 UPDATE 双保险）
// 2. 原子性：余额扣减和提现流水在同一个数据库事务里，任何一步失败全部回滚
// 3. 汇率报价由外围接口算好传入，这里原样落库不复核
func (s *WalletService) Withdraw(ctx context.Context, req *WithdrawRequest) (*WithdrawResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// 按用户维度加分布式锁，串行化同一用户的提现
	withdrawLock := s.newLock(req.UserID)
	err := withdrawLock.Lock(ctx, 100*time.Millisecond, 30)
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer withdrawLock.Unlock(ctx)

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// 先做一次快速校验，余额明显不够时不进事务
	if user.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	transactionNo := idgen.GenerateTransactionNo()

	err = s.runInTx(func(tx *gorm.DB) error {
		// 条件扣减：balance >= amount AND version 匹配，失败全事务回滚
		if err := s.userRepo.Deduct(ctx, tx, req.UserID, req.Amount, user.Version); err != nil {
			return err
		}

		transaction := &model.Transaction{
			TransactionNo: transactionNo,
			UserID:        user.ID,
			Email:         user.Email,
			Type:          model.TransactionTypeWithdrawal,
			Amount:        -req.Amount,
			Description:   req.Narration,
			Status:        model.TransactionStatusPending,
			BalanceBefore: user.Balance,
			BalanceAfter:  user.Balance - req.Amount,
			Withdrawal: &model.WithdrawalDetail{
				PayoutMethodID: req.PayoutMethodID,
				AccountName:    req.AccountName,
				AccountNumber:  req.AccountNumber,
				BankName:       req.BankName,
				Currency:       req.Currency,
				Narration:      req.Narration,
				Quote:          req.Quote,
			},
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录提现流水失败: %w", err)
		}

		if err := s.mailer.SendWithdrawalReceived(ctx, tx, user.Email, user.FullName(), transactionNo, req.Amount, req.Currency); err != nil {
			return fmt.Errorf("写入通知失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("提现受理: transactionNo=%s, userID=%d, amount=%d", transactionNo, req.UserID, req.Amount)

	return &WithdrawResponse{
		TransactionNo: transactionNo,
		Amount:        req.Amount,
		Balance:       user.Balance - req.Amount,
		Status:        model.TransactionStatusPending,
	}, nil
}

// ============================================================
// 支付入账
// ============================================================

type PaymentRequest struct {
	UserID     int64                    `json:"user_id" binding:"required"`
	Reference  string                   `json:"reference" binding:"required"` // 支付渠道凭证号
	PaidAmount int64                    `json:"paid_amount" binding:"required,gt=0"`
	Items      []model.CartItemSnapshot `json:"items" binding:"required,min=1,dive"`
}

type PaymentResponse struct {
	PaymentNo   string `json:"payment_no"`
	TotalAmount int64  `json:"total_amount"`
	PaidAmount  int64  `json:"paid_amount"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

// CreditFromPayment 支付确认入账
//
// 支付单和支付流水在同一个事务里创建，要么都有要么都没有；
// 清购物车、推进发行状态是履约环节，事务提交后逐条尽力执行，
// 单条失败只记日志不回滚支付（支付成功和履约是两件事）
func (s *WalletService) CreditFromPayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error) {
	if req.PaidAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// 渠道回调可能重放，按凭证号做幂等
	existing, err := s.paymentRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("查询支付单失败: %w", err)
	}
	if existing != nil {
		return &PaymentResponse{
			PaymentNo:   existing.PaymentNo,
			TotalAmount: existing.TotalAmount,
			PaidAmount:  existing.PaidAmount,
			Status:      model.TransactionStatusSuccess,
			Message:     "支付单已存在",
		}, nil
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	paymentNo := idgen.GeneratePaymentNo()
	totalAmount := model.SnapshotTotal(req.Items)

	err = s.runInTx(func(tx *gorm.DB) error {
		payment := &model.Payment{
			PaymentNo:   paymentNo,
			UserID:      user.ID,
			Reference:   req.Reference,
			Items:       req.Items,
			TotalAmount: totalAmount,
			PaidAmount:  req.PaidAmount,
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("创建支付单失败: %w", err)
		}

		transaction := &model.Transaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        user.ID,
			Email:         user.Email,
			Type:          model.TransactionTypePayment,
			Amount:        req.PaidAmount,
			Description:   fmt.Sprintf("分发费支付-%s", paymentNo),
			Status:        model.TransactionStatusSuccess,
			BalanceBefore: user.Balance,
			BalanceAfter:  user.Balance, // 分发费不走钱包余额
			Payment: &model.PaymentDetail{
				PaymentNo:   paymentNo,
				Reference:   req.Reference,
				Items:       req.Items,
				TotalAmount: totalAmount,
				PaidAmount:  req.PaidAmount,
			},
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录支付流水失败: %w", err)
		}

		if err := s.mailer.SendPaymentReceipt(ctx, tx, user.Email, user.FullName(), paymentNo, req.PaidAmount); err != nil {
			return fmt.Errorf("写入通知失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// 履约：清购物车 + 发行进入审核，逐条尽力而为
	for _, item := range req.Items {
		if err := s.cartRepo.RemoveByReleaseID(ctx, user.ID, item.ReleaseID); err != nil {
			log.Printf("清除购物车条目失败: userID=%d, releaseID=%d, err=%v", user.ID, item.ReleaseID, err)
		}
		if err := s.releaseRepo.MarkProcessing(ctx, item.ReleaseID, paymentNo); err != nil {
			log.Printf("推进发行状态失败: releaseID=%d, paymentNo=%s, err=%v", item.ReleaseID, paymentNo, err)
		}
	}

	log.Printf("支付入账: paymentNo=%s, userID=%d, paidAmount=%d, items=%d",
		paymentNo, req.UserID, req.PaidAmount, len(req.Items))

	return &PaymentResponse{
		PaymentNo:   paymentNo,
		TotalAmount: totalAmount,
		PaidAmount:  req.PaidAmount,
		Status:      model.TransactionStatusSuccess,
	}, nil
}

// ============================================================
// 查询与管理
// ============================================================

func (s *WalletService) GetBalance(ctx context.Context, userID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *WalletService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// AdvanceTransactionStatus 管理端推进提现打款进度，状态机校验在仓储层
func (s *WalletService) AdvanceTransactionStatus(ctx context.Context, transactionNo, toStatus string) error {
	trans, err := s.transactionRepo.GetByTransactionNo(ctx, transactionNo)
	if err != nil {
		return err
	}
	return s.transactionRepo.UpdateStatus(ctx, transactionNo, trans.Status, toStatus)
}

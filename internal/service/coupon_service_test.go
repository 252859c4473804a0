package service

import (
	"context"
	"testing"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/model"
	"musicdist/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMatches(t *testing.T) {
	snapshot := []model.CartItemSnapshot{
		{ReleaseID: 1, Title: "First Light", Price: 1999},
		{ReleaseID: 2, Title: "Night Drive", Price: 4999},
		{ReleaseID: 3, Title: "Interlude", Price: 2999},
	}

	tests := []struct {
		name      string
		candidate []model.CartItemSnapshot
		match     bool
	}{
		{
			name: "完全一致",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 4999},
				{ReleaseID: 3, Title: "Interlude", Price: 2999},
			},
			match: true,
		},
		{
			name: "顺序打乱不影响匹配",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 3, Title: "Interlude", Price: 2999},
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 4999},
			},
			match: true,
		},
		{
			// 单价在条目间挪动但总和和ID集合都没变，按整单口径算一致
			name: "单价挪动总和不变仍匹配",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 4999},
				{ReleaseID: 2, Title: "Night Drive", Price: 1999},
				{ReleaseID: 3, Title: "Interlude", Price: 2999},
			},
			match: true,
		},
		{
			name: "标题变了不影响匹配",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "first light (remaster)", Price: 1999},
				{ReleaseID: 2, Title: "", Price: 4999},
				{ReleaseID: 3, Title: "Interlude", Price: 2999},
			},
			match: true,
		},
		{
			name: "总和不一致",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 4999},
				{ReleaseID: 3, Title: "Interlude", Price: 3000},
			},
			match: false,
		},
		{
			name: "总和相同但ID集合不同",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 4999},
				{ReleaseID: 4, Title: "Other", Price: 2999},
			},
			match: false,
		},
		{
			name: "少了一个发行",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 7998},
			},
			match: false,
		},
		{
			name: "多了一个发行",
			candidate: []model.CartItemSnapshot{
				{ReleaseID: 1, Title: "First Light", Price: 1999},
				{ReleaseID: 2, Title: "Night Drive", Price: 4999},
				{ReleaseID: 3, Title: "Interlude", Price: 1999},
				{ReleaseID: 4, Title: "Other", Price: 1000},
			},
			match: false,
		},
		{
			name:      "空购物车",
			candidate: []model.CartItemSnapshot{},
			match:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, cartMatches(snapshot, tt.candidate))
		})
	}
}

// 重复的发行ID按集合折叠，总和相等就能匹配
func TestCartMatchesDuplicateIDsCollapse(t *testing.T) {
	snapshot := []model.CartItemSnapshot{
		{ReleaseID: 1, Price: 500},
		{ReleaseID: 1, Price: 500},
	}
	candidate := []model.CartItemSnapshot{
		{ReleaseID: 1, Price: 1000},
	}
	assert.True(t, cartMatches(snapshot, candidate))
}

// ============================================================
// 内存假实现，条件更新语义与仓储层保持一致
// ============================================================

type fakeCouponStore struct {
	coupons         map[int64]*model.CouponApplication
	approveCalls    int
	approveDupTimes int // 前N次批准返回撞码错误
	markUsedErr     error
}

func newFakeCouponStore(coupons ...*model.CouponApplication) *fakeCouponStore {
	s := &fakeCouponStore{coupons: make(map[int64]*model.CouponApplication)}
	for _, c := range coupons {
		s.coupons[c.ID] = c
	}
	return s
}

func (s *fakeCouponStore) Create(ctx context.Context, coupon *model.CouponApplication) error {
	coupon.ID = int64(len(s.coupons) + 1)
	s.coupons[coupon.ID] = coupon
	return nil
}

func (s *fakeCouponStore) GetByID(ctx context.Context, couponID int64) (*model.CouponApplication, error) {
	c, ok := s.coupons[couponID]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCouponStore) GetByCode(ctx context.Context, code string) (*model.CouponApplication, error) {
	for _, c := range s.coupons {
		if c.Code == code && code != "" {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCouponNotFound
}

func (s *fakeCouponStore) Approve(ctx context.Context, couponID int64, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error {
	s.approveCalls++
	if s.approveCalls <= s.approveDupTimes {
		return repository.ErrCouponCodeDup
	}
	c, ok := s.coupons[couponID]
	if !ok || c.Status != model.CouponStatusPending {
		return repository.ErrCouponConflict
	}
	c.Status = model.CouponStatusApproved
	c.Code = code
	c.DiscountPercent = discountPercent
	c.TotalAmount = totalAmount
	c.DiscountedAmount = discountedAmount
	c.PayableAmount = payableAmount
	return nil
}

func (s *fakeCouponStore) Reject(ctx context.Context, couponID int64) error {
	c, ok := s.coupons[couponID]
	if !ok || c.Status != model.CouponStatusPending {
		return repository.ErrCouponConflict
	}
	c.Status = model.CouponStatusRejected
	c.Code = ""
	return nil
}

func (s *fakeCouponStore) MarkUsed(ctx context.Context, couponID int64, usedAt time.Time) error {
	if s.markUsedErr != nil {
		return s.markUsedErr
	}
	c, ok := s.coupons[couponID]
	if !ok || c.Status != model.CouponStatusApproved {
		return repository.ErrCouponConflict
	}
	c.Status = model.CouponStatusUsed
	c.UsedAt = &usedAt
	return nil
}

func (s *fakeCouponStore) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.CouponApplication, int64, error) {
	var out []*model.CouponApplication
	for _, c := range s.coupons {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

type fakeCouponNotifier struct {
	approvedCodes []string
	rejectedIDs   []int64
}

func (n *fakeCouponNotifier) SendCouponApproved(ctx context.Context, email, name, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error {
	n.approvedCodes = append(n.approvedCodes, code)
	return nil
}

func (n *fakeCouponNotifier) SendCouponRejected(ctx context.Context, email, name string, couponID int64) error {
	n.rejectedIDs = append(n.rejectedIDs, couponID)
	return nil
}

func newCouponService(store *fakeCouponStore, notifier *fakeCouponNotifier, users map[int64]*model.User) *CouponService {
	return &CouponService{
		cfg:        &config.Config{Business: config.BusinessConfig{CouponCodeLength: 8}},
		mailer:     notifier,
		couponRepo: store,
		userRepo:   &fakeUserStore{users: users},
	}
}

func snapshotItems() []model.CartItemSnapshot {
	return []model.CartItemSnapshot{
		{ReleaseID: 1, Title: "First Light", Price: 1999},
		{ReleaseID: 2, Title: "Night Drive", Price: 4999},
	}
}

func approvedCoupon() *model.CouponApplication {
	return &model.CouponApplication{
		ID:              1,
		UserID:          100,
		Email:           "ada@example.com",
		Name:            "Ada Lovelace",
		Items:           snapshotItems(),
		Status:          model.CouponStatusApproved,
		Code:            "ABCD2345",
		DiscountPercent: 10,
		TotalAmount:     6998,
	}
}

// ============================================================
// 核销
// ============================================================

func TestRedeemSuccess(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	// 顺序打乱的购物车照样核销成功
	items := snapshotItems()
	items[0], items[1] = items[1], items[0]

	coupon, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 100,
		Code:   "ABCD2345",
		Items:  items,
	})

	require.NoError(t, err)
	assert.Equal(t, model.CouponStatusUsed, coupon.Status)
	require.NotNil(t, coupon.UsedAt)
	assert.Equal(t, model.CouponStatusUsed, store.coupons[1].Status)
	assert.NotNil(t, store.coupons[1].UsedAt)
}

func TestRedeemUnknownCode(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	_, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 100,
		Code:   "NOPE9999",
		Items:  snapshotItems(),
	})

	assert.ErrorIs(t, err, repository.ErrCouponNotFound)
}

func TestRedeemNotOwner(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	_, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 200,
		Code:   "ABCD2345",
		Items:  snapshotItems(),
	})

	assert.ErrorIs(t, err, ErrCouponNotOwner)
	assert.Equal(t, model.CouponStatusApproved, store.coupons[1].Status)
}

func TestRedeemOwnerCheckedBeforeStatus(t *testing.T) {
	coupon := approvedCoupon()
	coupon.Status = model.CouponStatusUsed
	store := newFakeCouponStore(coupon)
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	// 别人的已核销券：先报"不是本人"而不是"已失效"
	_, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 200,
		Code:   "ABCD2345",
		Items:  snapshotItems(),
	})

	assert.ErrorIs(t, err, ErrCouponNotOwner)
}

func TestRedeemSingleUse(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	req := &CouponRedeemRequest{UserID: 100, Code: "ABCD2345", Items: snapshotItems()}

	_, err := svc.Redeem(context.Background(), req)
	require.NoError(t, err)

	// 同一张券第二次提交是错误，不是幂等成功
	_, err = svc.Redeem(context.Background(), req)
	assert.ErrorIs(t, err, ErrCouponNotUsable)
}

func TestRedeemNotUsableStatuses(t *testing.T) {
	for _, status := range []string{model.CouponStatusPending, model.CouponStatusRejected, model.CouponStatusUsed} {
		coupon := approvedCoupon()
		coupon.Status = status
		store := newFakeCouponStore(coupon)
		svc := newCouponService(store, &fakeCouponNotifier{}, nil)

		_, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
			UserID: 100,
			Code:   "ABCD2345",
			Items:  snapshotItems(),
		})

		assert.ErrorIs(t, err, ErrCouponNotUsable, "status=%s", status)
	}
}

func TestRedeemCartMismatch(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	items := snapshotItems()
	items[0].Price += 100

	_, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 100,
		Code:   "ABCD2345",
		Items:  items,
	})

	assert.ErrorIs(t, err, ErrCartMismatch)
	assert.Equal(t, model.CouponStatusApproved, store.coupons[1].Status)
}

func TestRedeemConcurrentConflict(t *testing.T) {
	store := newFakeCouponStore(approvedCoupon())
	// 条件更新落空 = 并发核销抢先了一步
	store.markUsedErr = repository.ErrCouponConflict
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	coupon, err := svc.Redeem(context.Background(), &CouponRedeemRequest{
		UserID: 100,
		Code:   "ABCD2345",
		Items:  snapshotItems(),
	})

	assert.ErrorIs(t, err, repository.ErrCouponConflict)
	assert.Nil(t, coupon)
}

// ============================================================
// 审核
// ============================================================

func pendingCoupon() *model.CouponApplication {
	return &model.CouponApplication{
		ID:     1,
		UserID: 100,
		Email:  "ada@example.com",
		Name:   "Ada Lovelace",
		Items:  snapshotItems(),
		Status: model.CouponStatusPending,
	}
}

func TestApproveComputesAmountsAndNotifies(t *testing.T) {
	store := newFakeCouponStore(pendingCoupon())
	notifier := &fakeCouponNotifier{}
	svc := newCouponService(store, notifier, nil)

	coupon, err := svc.Approve(context.Background(), 1, 25)

	require.NoError(t, err)
	assert.Equal(t, model.CouponStatusApproved, coupon.Status)
	assert.Len(t, coupon.Code, 8)
	assert.Equal(t, int64(6998), coupon.TotalAmount)
	assert.Equal(t, int64(1749), coupon.DiscountedAmount)
	assert.Equal(t, int64(5249), coupon.PayableAmount)
	assert.Equal(t, []string{coupon.Code}, notifier.approvedCodes)
}

func TestApproveRegeneratesOnCodeCollision(t *testing.T) {
	store := newFakeCouponStore(pendingCoupon())
	store.approveDupTimes = 2
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	coupon, err := svc.Approve(context.Background(), 1, 10)

	// 撞码换码重试，第三次写入成功
	require.NoError(t, err)
	assert.Equal(t, 3, store.approveCalls)
	assert.Equal(t, model.CouponStatusApproved, coupon.Status)
	assert.Len(t, coupon.Code, 8)
}

func TestApproveCodeRetriesExhausted(t *testing.T) {
	store := newFakeCouponStore(pendingCoupon())
	store.approveDupTimes = 100
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	_, err := svc.Approve(context.Background(), 1, 10)

	assert.ErrorIs(t, err, repository.ErrCouponCodeDup)
	assert.Equal(t, couponCodeMaxRetries, store.approveCalls)
	assert.Equal(t, model.CouponStatusPending, store.coupons[1].Status)
}

func TestApproveInvalidPercent(t *testing.T) {
	store := newFakeCouponStore(pendingCoupon())
	svc := newCouponService(store, &fakeCouponNotifier{}, nil)

	for _, percent := range []int{0, -5, 101} {
		_, err := svc.Approve(context.Background(), 1, percent)
		assert.ErrorIs(t, err, ErrInvalidPercent)
	}
	assert.Equal(t, 0, store.approveCalls)
}

func TestRejectClearsCodeAndNotifies(t *testing.T) {
	store := newFakeCouponStore(pendingCoupon())
	notifier := &fakeCouponNotifier{}
	svc := newCouponService(store, notifier, nil)

	require.NoError(t, svc.Reject(context.Background(), 1))
	assert.Equal(t, model.CouponStatusRejected, store.coupons[1].Status)
	assert.Equal(t, "", store.coupons[1].Code)
	assert.Equal(t, []int64{1}, notifier.rejectedIDs)

	// 已驳回的申请不能再批准
	_, err := svc.Approve(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrCouponConflict)
}

func TestApplyFreezesSnapshot(t *testing.T) {
	store := newFakeCouponStore()
	svc := newCouponService(store, &fakeCouponNotifier{}, map[int64]*model.User{
		100: {ID: 100, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	})

	coupon, err := svc.Apply(context.Background(), &CouponApplyRequest{
		UserID:      100,
		Items:       snapshotItems(),
		SocialLink1: "https://instagram.com/ada",
		SocialLink2: "https://twitter.com/ada",
		SocialLink3: "https://tiktok.com/@ada",
	})

	require.NoError(t, err)
	assert.Equal(t, model.CouponStatusPending, coupon.Status)
	assert.Equal(t, "ada@example.com", coupon.Email)
	assert.Equal(t, "Ada Lovelace", coupon.Name)
	assert.Equal(t, int64(6998), coupon.TotalAmount)
	assert.Len(t, coupon.Items, 2)
}

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		percent    int
		discounted int64
		payable    int64
	}{
		{"二五折减免", 10000, 25, 2500, 7500},
		{"全额减免", 10000, 100, 10000, 0},
		{"百分之一", 10000, 1, 100, 9900},
		{"除不尽向下取整", 999, 33, 329, 670},
		{"零金额", 0, 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discounted, payable := computeDiscount(tt.total, tt.percent)
			assert.Equal(t, tt.discounted, discounted)
			assert.Equal(t, tt.payable, payable)
			assert.Equal(t, tt.total, discounted+payable)
		})
	}
}

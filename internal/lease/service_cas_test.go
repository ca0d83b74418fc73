package lease

import (
	"context"
	"testing"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"gorm.io/gorm"
)

// hookClock 固定时间源，取时间前先执行注入的钩子。
// Manager 在校验读之后、事务之前取时间，钩子在这个窗口里
// 制造并发写入，逼出版本冲突分支。
type hookClock struct {
	t    time.Time
	hook func()
}

func (c *hookClock) Now() time.Time {
	if c.hook != nil {
		c.hook()
	}
	return c.t
}

func mustCustomer(t *testing.T, db *gorm.DB, id uint) *customer.Customer {
	t.Helper()
	var c customer.Customer
	if err := db.First(&c, id).Error; err != nil {
		t.Fatalf("failed to reload customer %d: %v", id, err)
	}
	return &c
}

// bumpCustomerVersion 模拟另一个开租请求抢先自增客户版本号。
func bumpCustomerVersion(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	c := mustCustomer(t, db, id)
	ok, err := customer.NewRepo(db).BumpVersionCAS(context.Background(), id, c.Version)
	if err != nil || !ok {
		t.Fatalf("failed to bump customer version: ok=%v err=%v", ok, err)
	}
}

// bumpCarVersion 模拟另一个请求抢先改写车辆行（状态不变，版本号自增）。
func bumpCarVersion(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	c := mustCar(t, db, id)
	ok, err := fleet.NewCarRepo(db).UpdateStatusCAS(context.Background(), id, c.Version, c.Status)
	if err != nil || !ok {
		t.Fatalf("failed to bump car version: ok=%v err=%v", ok, err)
	}
}

// 客户版本号在校验后被并发自增：第一轮事务回滚，第二轮重读后成功。
func TestStartLeaseRetriesOnVersionConflict(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	m := NewManager(db, nil, nil)
	ctx := context.Background()

	fired := false
	m.clock = &hookClock{t: testNow, hook: func() {
		if fired {
			return
		}
		fired = true
		bumpCustomerVersion(t, db, cust.ID)
	}}

	result, err := m.StartLease(ctx, cust.ID, car.ID)
	if err != nil {
		t.Fatalf("StartLease failed after conflict: %v", err)
	}
	if len(result.Leases) != 1 {
		t.Fatalf("result leases = %d, want 1", len(result.Leases))
	}
	if n := countLeases(t, db); n != 1 {
		t.Errorf("lease count = %d, want 1", n)
	}

	// 钩子自增一次 + 成功开租自增一次
	if got := mustCustomer(t, db, cust.ID); got.Version != 2 {
		t.Errorf("customer version = %d, want 2", got.Version)
	}
	// 第一轮的车辆 CAS 必须随事务回滚，最终只自增一次
	got := mustCar(t, db, car.ID)
	if got.Status != fleet.StatusOnLease || got.Version != 1 {
		t.Errorf("car = (%s, v%d), want (%s, v1)", got.Status, got.Version, fleet.StatusOnLease)
	}
}

// 车辆版本号在结租校验后被并发自增：租约的结束写入随事务回滚，重试后成功。
func TestEndLeaseRetriesOnVersionConflict(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	m := NewManager(db, fixedClock{testNow}, nil)
	ctx := context.Background()

	result, err := m.StartLease(ctx, cust.ID, car.ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	leaseID := result.Leases[0].ID

	fired := false
	m.clock = &hookClock{t: testNow.Add(48 * time.Hour), hook: func() {
		if fired {
			return
		}
		fired = true
		bumpCarVersion(t, db, car.ID)
	}}

	detail, err := m.EndLease(ctx, leaseID)
	if err != nil {
		t.Fatalf("EndLease failed after conflict: %v", err)
	}
	if detail.Status != StatusEnded {
		t.Errorf("lease status = %s, want %s", detail.Status, StatusEnded)
	}

	var l Lease
	if err := db.First(&l, leaseID).Error; err != nil {
		t.Fatalf("failed to reload lease: %v", err)
	}
	if l.Status != StatusEnded || l.EndDate == nil {
		t.Errorf("lease = (%s, end=%v), want ended with end date", l.Status, l.EndDate)
	}
	// 钩子自增 v1→v2，成功结租 v2→v3
	got := mustCar(t, db, car.ID)
	if got.Status != fleet.StatusIdle || got.Version != 3 {
		t.Errorf("car = (%s, v%d), want (%s, v3)", got.Status, got.Version, fleet.StatusIdle)
	}
}

// 每一轮都被抢先：重试耗尽后报冲突，且不留任何残留。
func TestStartLeaseConflictAfterRetriesExhausted(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	m := NewManager(db, nil, nil)
	ctx := context.Background()

	attempts := 0
	m.clock = &hookClock{t: testNow, hook: func() {
		attempts++
		bumpCustomerVersion(t, db, cust.ID)
	}}

	_, err := m.StartLease(ctx, cust.ID, car.ID)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("exhausted retries: kind = %v, want Conflict (err=%v)", errs.KindOf(err), err)
	}
	if attempts != maxCASRetries {
		t.Errorf("attempts = %d, want %d", attempts, maxCASRetries)
	}
	if n := countLeases(t, db); n != 0 {
		t.Errorf("leases created on failed start: %d", n)
	}
	// 每一轮的车辆 CAS 都随事务回滚
	got := mustCar(t, db, car.ID)
	if got.Status != fleet.StatusIdle || got.Version != 0 {
		t.Errorf("car = (%s, v%d), want (%s, v0)", got.Status, got.Version, fleet.StatusIdle)
	}
}

// EndCAS 状态谓词更新：第二次调用必须落空且不改动已写入的结束时间。
func TestEndCASOnlyOnce(t *testing.T) {
	db := openTestDB(t)
	owner := seedOwner(t, db)
	car := seedCar(t, db, owner.ID, fleet.StatusIdle)
	cust := seedCustomer(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	l := &Lease{CarID: car.ID, CustomerID: cust.ID, StartDate: testNow, Status: StatusActive}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("failed to seed lease: %v", err)
	}

	firstEnd := testNow.Add(24 * time.Hour)
	ok, err := repo.EndCAS(ctx, l.ID, firstEnd)
	if err != nil || !ok {
		t.Fatalf("first EndCAS: ok=%v err=%v", ok, err)
	}
	ok, err = repo.EndCAS(ctx, l.ID, testNow.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("second EndCAS: %v", err)
	}
	if ok {
		t.Error("second EndCAS reported success on an ended lease")
	}

	var got Lease
	if err := db.First(&got, l.ID).Error; err != nil {
		t.Fatalf("failed to reload lease: %v", err)
	}
	if got.Status != StatusEnded || got.EndDate == nil || !got.EndDate.Equal(firstEnd) {
		t.Errorf("lease mutated by failed EndCAS: %+v", got)
	}
}

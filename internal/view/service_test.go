package view_test

import (
	"context"
	"testing"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/CarLeaseHub/CarLeaseHub/internal/lease"
	"github.com/CarLeaseHub/CarLeaseHub/internal/view"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&fleet.Owner{}, &fleet.Car{}, &customer.Customer{}, &lease.Lease{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestCache(t *testing.T) *view.CarCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log, err := logger.NewLogger("zap", "error", "json", "stdout", "")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return view.NewCarCache(client, log)
}

func seed(t *testing.T, db *gorm.DB) (*fleet.Owner, []fleet.Car, *customer.Customer) {
	t.Helper()

	owner := &fleet.Owner{Name: "Zhang Wei", Email: "zw@example.com", PhoneNumber: "138"}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("failed to seed owner: %v", err)
	}
	cars := []fleet.Car{
		{OwnerID: owner.ID, Model: "Model 3", Variant: "LR", Status: fleet.StatusIdle},
		{OwnerID: owner.ID, Model: "Model Y", Variant: "P", Status: fleet.StatusIdle},
		{OwnerID: owner.ID, Model: "Golf", Variant: "GTI", Status: fleet.StatusOnService},
	}
	for i := range cars {
		if err := db.Create(&cars[i]).Error; err != nil {
			t.Fatalf("failed to seed car: %v", err)
		}
	}
	cust := &customer.Customer{Name: "Li Na", Email: "ln@example.com", PhoneNumber: "139"}
	if err := db.Create(cust).Error; err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	return owner, cars, cust
}

func TestListOwners(t *testing.T) {
	db := openTestDB(t)
	owner, cars, _ := seed(t, db)
	svc := view.NewService(db, nil)
	ctx := context.Background()

	views, err := svc.ListOwners(ctx)
	if err != nil {
		t.Fatalf("ListOwners failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("owners = %d, want 1", len(views))
	}
	if views[0].ID != owner.ID || len(views[0].Cars) != len(cars) {
		t.Errorf("owner view = id=%d cars=%d, want id=%d cars=%d",
			views[0].ID, len(views[0].Cars), owner.ID, len(cars))
	}

	if _, err := svc.GetOwner(ctx, owner.ID+100); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing owner: kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestCustomerViews(t *testing.T) {
	db := openTestDB(t)
	_, cars, cust := seed(t, db)
	svc := view.NewService(db, nil)
	m := lease.NewManager(db, fixedClock{testNow}, nil)
	ctx := context.Background()

	if _, err := m.StartLease(ctx, cust.ID, cars[0].ID); err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}

	v, err := svc.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if len(v.Leases) != 1 {
		t.Fatalf("customer leases = %d, want 1", len(v.Leases))
	}
	d := v.Leases[0]
	if d.Status != lease.StatusActive || d.Car.ID != cars[0].ID || d.Car.Model != cars[0].Model {
		t.Errorf("lease detail = %+v", d)
	}

	details, err := svc.CustomerLeases(ctx, cust.ID)
	if err != nil {
		t.Fatalf("CustomerLeases failed: %v", err)
	}
	if len(details) != 1 {
		t.Errorf("leases = %d, want 1", len(details))
	}

	if _, err := svc.CustomerLeases(ctx, cust.ID+100); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing customer: kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestCarsByStatus(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	svc := view.NewService(db, nil)
	ctx := context.Background()

	idle, err := svc.CarsByStatus(ctx, fleet.StatusIdle)
	if err != nil {
		t.Fatalf("CarsByStatus failed: %v", err)
	}
	if len(idle) != 2 {
		t.Errorf("idle cars = %d, want 2", len(idle))
	}

	all, err := svc.CarsByStatus(ctx, "")
	if err != nil {
		t.Fatalf("CarsByStatus failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all cars = %d, want 3", len(all))
	}

	if _, err := svc.CarsByStatus(ctx, "flying"); errs.KindOf(err) != errs.KindInvalid {
		t.Errorf("bad status: kind = %v, want Invalid", errs.KindOf(err))
	}
}

func TestLeasesByStatus(t *testing.T) {
	db := openTestDB(t)
	_, cars, cust := seed(t, db)
	svc := view.NewService(db, nil)
	m := lease.NewManager(db, fixedClock{testNow}, nil)
	ctx := context.Background()

	r1, err := m.StartLease(ctx, cust.ID, cars[0].ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	if _, err := m.StartLease(ctx, cust.ID, cars[1].ID); err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	if _, err := m.EndLease(ctx, r1.Leases[0].ID); err != nil {
		t.Fatalf("EndLease failed: %v", err)
	}

	active, err := svc.LeasesByStatus(ctx, lease.StatusActive)
	if err != nil {
		t.Fatalf("LeasesByStatus failed: %v", err)
	}
	if len(active) != 1 || active[0].Car.ID != cars[1].ID {
		t.Errorf("active leases = %+v", active)
	}

	ended, err := svc.LeasesByStatus(ctx, lease.StatusEnded)
	if err != nil {
		t.Fatalf("LeasesByStatus failed: %v", err)
	}
	if len(ended) != 1 || ended[0].EndDate == nil {
		t.Errorf("ended leases = %+v", ended)
	}

	all, err := svc.LeasesByStatus(ctx, "")
	if err != nil {
		t.Fatalf("LeasesByStatus failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all leases = %d, want 2", len(all))
	}

	if _, err := svc.LeasesByStatus(ctx, "paused"); errs.KindOf(err) != errs.KindInvalid {
		t.Errorf("bad status: kind = %v, want Invalid", errs.KindOf(err))
	}
}

func TestCarAndLeaseViews(t *testing.T) {
	db := openTestDB(t)
	_, cars, cust := seed(t, db)
	svc := view.NewService(db, nil)
	m := lease.NewManager(db, fixedClock{testNow}, nil)
	ctx := context.Background()

	result, err := m.StartLease(ctx, cust.ID, cars[0].ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	leaseID := result.Leases[0].ID

	cv, err := svc.GetCar(ctx, cars[0].ID)
	if err != nil {
		t.Fatalf("GetCar failed: %v", err)
	}
	if cv.Status != fleet.StatusOnLease || len(cv.Leases) != 1 {
		t.Errorf("car view = status=%s leases=%d, want on_lease/1", cv.Status, len(cv.Leases))
	}

	d, err := svc.GetLease(ctx, leaseID)
	if err != nil {
		t.Fatalf("GetLease failed: %v", err)
	}
	if d.Status != lease.StatusActive || d.Car.ID != cars[0].ID {
		t.Errorf("lease view = %+v", d)
	}

	if _, err := svc.GetCar(ctx, 999); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing car: kind = %v, want NotFound", errs.KindOf(err))
	}
	if _, err := svc.GetLease(ctx, 999); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing lease: kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestOwnerLeases(t *testing.T) {
	db := openTestDB(t)
	owner, cars, cust := seed(t, db)
	svc := view.NewService(db, nil)
	m := lease.NewManager(db, fixedClock{testNow}, nil)
	ctx := context.Background()

	r, err := m.StartLease(ctx, cust.ID, cars[0].ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	if _, err := m.EndLease(ctx, r.Leases[0].ID); err != nil {
		t.Fatalf("EndLease failed: %v", err)
	}
	if _, err := m.StartLease(ctx, cust.ID, cars[1].ID); err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}

	details, err := svc.OwnerLeases(ctx, owner.ID)
	if err != nil {
		t.Fatalf("OwnerLeases failed: %v", err)
	}
	if len(details) != 2 {
		t.Errorf("owner leases = %d, want 2", len(details))
	}

	if _, err := svc.OwnerLeases(ctx, owner.ID+100); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing owner: kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestAvailableCarsCaching(t *testing.T) {
	db := openTestDB(t)
	_, cars, _ := seed(t, db)
	cache := newTestCache(t)
	svc := view.NewService(db, cache)
	ctx := context.Background()

	first, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("available cars = %d, want 2", len(first))
	}

	// 绕过业务层直接改库：缓存命中时必须仍返回旧列表
	if err := db.Model(&fleet.Car{}).Where("id = ?", cars[0].ID).Update("status", fleet.StatusOnService).Error; err != nil {
		t.Fatalf("failed to mutate car: %v", err)
	}
	cached, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("cached result = %d cars, want 2 (stale by design)", len(cached))
	}

	// 失效后回源，拿到最新状态
	svc.InvalidateCars(ctx)
	fresh, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(fresh) != 1 {
		t.Errorf("fresh result = %d cars, want 1", len(fresh))
	}
}

// 开租/结租通过变更回调失效缓存。
func TestAvailableCarsInvalidatedByLease(t *testing.T) {
	db := openTestDB(t)
	_, cars, cust := seed(t, db)
	cache := newTestCache(t)
	svc := view.NewService(db, cache)
	m := lease.NewManager(db, fixedClock{testNow}, nil)
	m.SetOnChange(svc.InvalidateCars)
	ctx := context.Background()

	before, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(before) != 2 {
		t.Fatalf("available cars = %d, want 2", len(before))
	}

	result, err := m.StartLease(ctx, cust.ID, cars[0].ID)
	if err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}
	after, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(after) != 1 {
		t.Errorf("available cars after start = %d, want 1", len(after))
	}

	if _, err := m.EndLease(ctx, result.Leases[0].ID); err != nil {
		t.Fatalf("EndLease failed: %v", err)
	}
	final, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars failed: %v", err)
	}
	if len(final) != 2 {
		t.Errorf("available cars after end = %d, want 2", len(final))
	}
}

// Redis 不可用时读接口直接回源，不报错。
func TestAvailableCarsRedisDown(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log, err := logger.NewLogger("zap", "error", "json", "stdout", "")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	cache := view.NewCarCache(client, log)
	svc := view.NewService(db, cache)
	ctx := context.Background()

	mr.Close()

	cars, err := svc.AvailableCars(ctx)
	if err != nil {
		t.Fatalf("AvailableCars with redis down failed: %v", err)
	}
	if len(cars) != 2 {
		t.Errorf("available cars = %d, want 2", len(cars))
	}
}

package customer_test

import (
	"context"
	"testing"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/CarLeaseHub/CarLeaseHub/internal/lease"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

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

func TestRegisterAndUpdate(t *testing.T) {
	db := openTestDB(t)
	svc := customer.NewService(db, lease.NewRepo(db))
	ctx := context.Background()

	c, err := svc.Register(ctx, customer.Input{
		Name:        "Li Na",
		Email:       "lina@example.com",
		PhoneNumber: "13900000001",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("customer id not assigned")
	}

	updated, err := svc.Update(ctx, c.ID, customer.Input{
		Name:        "Li Na",
		Email:       "li.na@example.com",
		PhoneNumber: "13900000001",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Email != "li.na@example.com" {
		t.Errorf("email = %s, want li.na@example.com", updated.Email)
	}

	if _, err := svc.Update(ctx, c.ID+100, customer.Input{Name: "x", Email: "y", PhoneNumber: "z"}); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("missing customer: kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestRegisterValidation(t *testing.T) {
	db := openTestDB(t)
	svc := customer.NewService(db, lease.NewRepo(db))
	ctx := context.Background()

	cases := []customer.Input{
		{Email: "a@example.com", PhoneNumber: "139"},
		{Name: "Li Na", PhoneNumber: "139"},
		{Name: "Li Na", Email: "a@example.com"},
	}
	for i, in := range cases {
		if _, err := svc.Register(ctx, in); errs.KindOf(err) != errs.KindInvalid {
			t.Errorf("case %d: kind = %v, want Invalid (err=%v)", i, errs.KindOf(err), err)
		}
	}
}

func TestDeleteCascadesLeases(t *testing.T) {
	db := openTestDB(t)
	svc := customer.NewService(db, lease.NewRepo(db))
	ctx := context.Background()

	c, err := svc.Register(ctx, customer.Input{
		Name:        "Li Na",
		Email:       "lina@example.com",
		PhoneNumber: "13900000001",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	owner := &fleet.Owner{Name: "Zhang Wei", Email: "zw@example.com", PhoneNumber: "138"}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("failed to seed owner: %v", err)
	}
	car := &fleet.Car{OwnerID: owner.ID, Model: "Model 3", Variant: "LR", Status: fleet.StatusIdle}
	if err := db.Create(car).Error; err != nil {
		t.Fatalf("failed to seed car: %v", err)
	}
	m := lease.NewManager(db, fixedClock{time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}, nil)
	if _, err := m.StartLease(ctx, c.ID, car.ID); err != nil {
		t.Fatalf("StartLease failed: %v", err)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var nCustomers, nLeases, nCars int64
	db.Model(&customer.Customer{}).Count(&nCustomers)
	db.Model(&lease.Lease{}).Count(&nLeases)
	db.Model(&fleet.Car{}).Count(&nCars)
	if nCustomers != 0 || nLeases != 0 {
		t.Errorf("cascade incomplete: customers=%d leases=%d", nCustomers, nLeases)
	}
	// 车辆本身保留（状态仍为租赁中，由运营人工处理）
	if nCars != 1 {
		t.Errorf("cars = %d, want 1", nCars)
	}

	if err := svc.Delete(ctx, c.ID); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("delete missing customer: kind = %v, want NotFound", errs.KindOf(err))
	}
}

package lease

import (
	"context"
	"errors"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/metrics"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"gorm.io/gorm"
)

const (
	// maxActiveLeases 单个客户同时生效的租约上限。
	maxActiveLeases = 2
	// maxCASRetries 乐观锁冲突时整个“读-校验-写”序列的重试次数上限。
	maxCASRetries = 3
)

// errCASConflict 事务内部的版本冲突信号，用于回滚并触发整体重试。
var errCASConflict = errors.New("optimistic lock conflict")

// Clock 时间源。注入以便测试使用固定时间戳。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 真实时钟。
func SystemClock() Clock { return systemClock{} }

// Manager 租约生命周期管理：开租 / 结租的唯一入口，
// 负责维护车辆状态与租约状态的一致性。
//
// 并发控制：开租/结租都是“读-校验-写”序列，靠 Car.Version 的 CAS 更新
// 和 Customer.Version 的 CAS 自增把校验和写入串行化；两处写入在同一个
// 事务内，版本冲突回滚后整体重试。
type Manager struct {
	db        *gorm.DB
	leases    *Repo
	cars      *fleet.CarRepo
	customers *customer.Repo
	clock     Clock
	metrics   *metrics.Metrics
	onChange  func(ctx context.Context)
}

// SetOnChange 注册租约状态变化后的回调（用于失效读侧缓存）。
func (m *Manager) SetOnChange(fn func(ctx context.Context)) {
	if m != nil {
		m.onChange = fn
	}
}

func (m *Manager) notifyChange(ctx context.Context) {
	if m.onChange != nil {
		m.onChange(ctx)
	}
}

// NewManager 创建生命周期管理器；clock 为 nil 时使用真实时钟，m 可为 nil。
func NewManager(db *gorm.DB, clock Clock, m *metrics.Metrics) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	return &Manager{
		db:        db,
		leases:    NewRepo(db),
		cars:      fleet.NewCarRepo(db),
		customers: customer.NewRepo(db),
		clock:     clock,
		metrics:   m,
	}
}

// StartLease 为客户开一条新租约。
//
// 校验顺序固定：先车辆可用性，再客户租约数上限（两者都不满足时报前者）。
// 成功后车辆流转为 on_lease，返回客户当前的完整租约列表。
func (m *Manager) StartLease(ctx context.Context, customerID, carID uint) (*StartResult, error) {
	if m == nil || m.db == nil {
		return nil, errs.Internal("manager not initialized", nil)
	}
	if customerID == 0 || carID == 0 {
		return nil, errs.Invalid("customer_id/car_id required")
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		cust, err := m.customers.FindByID(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("customer", customerID)
			}
			return nil, errs.Internal("failed to load customer", err)
		}

		car, err := m.cars.FindByID(ctx, carID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("car", carID)
			}
			return nil, errs.Internal("failed to load car", err)
		}

		if !CanLeaseCarTransition(car.Status, fleet.StatusOnLease) {
			m.countConflict("car_unavailable")
			return nil, errs.Conflict("car", carID, "car is not available for lease")
		}

		active, err := m.leases.CountByCustomerIDAndStatus(ctx, customerID, StatusActive)
		if err != nil {
			return nil, errs.Internal("failed to count active leases", err)
		}
		if active >= maxActiveLeases {
			m.countConflict("lease_limit")
			return nil, errs.Conflict("customer", customerID, "customer already has 2 active leases")
		}

		now := m.clock.Now()
		txErr := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := m.cars.WithTx(tx).UpdateStatusCAS(ctx, car.ID, car.Version, fleet.StatusOnLease)
			if err != nil {
				return err
			}
			if !ok {
				return errCASConflict
			}
			// 客户版本号自增：让并发的开租在这里相互落败，保证上面的计数校验不过期。
			ok, err = m.customers.WithTx(tx).BumpVersionCAS(ctx, cust.ID, cust.Version)
			if err != nil {
				return err
			}
			if !ok {
				return errCASConflict
			}
			return m.leases.WithTx(tx).Create(ctx, &Lease{
				CarID:      car.ID,
				CustomerID: cust.ID,
				StartDate:  now,
				Status:     StatusActive,
			})
		})
		if txErr != nil {
			if errors.Is(txErr, errCASConflict) {
				continue
			}
			return nil, errs.Internal("failed to start lease", txErr)
		}

		if m.metrics != nil {
			m.metrics.LeasesStarted.Inc()
		}
		m.notifyChange(ctx)

		details, err := m.leaseDetailsForCustomer(ctx, cust.ID)
		if err != nil {
			return nil, err
		}
		return &StartResult{
			CustomerID:   cust.ID,
			CustomerName: cust.Name,
			Leases:       details,
		}, nil
	}

	return nil, errs.Conflict("car", carID, "concurrent lease operation conflict, retry")
}

// EndLease 结束租约。
//
// 只有 active 的租约可以结束，重复结束报冲突；成功后车辆回到 idle。
// 状态谓词更新（EndCAS）保证并发结束同一租约只有一个能成功。
func (m *Manager) EndLease(ctx context.Context, leaseID uint) (*Detail, error) {
	if m == nil || m.db == nil {
		return nil, errs.Internal("manager not initialized", nil)
	}
	if leaseID == 0 {
		return nil, errs.Invalid("lease_id required")
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		l, err := m.leases.FindByID(ctx, leaseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("lease", leaseID)
			}
			return nil, errs.Internal("failed to load lease", err)
		}

		if !CanTransition(l.Status, StatusEnded) {
			m.countConflict("not_active")
			return nil, errs.Conflict("lease", leaseID, "lease is not active")
		}

		car, err := m.cars.FindByID(ctx, l.CarID)
		if err != nil {
			return nil, errs.Internal("failed to load lease car", err)
		}

		now := m.clock.Now()
		txErr := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := m.leases.WithTx(tx).EndCAS(ctx, l.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return errCASConflict
			}
			ok, err = m.cars.WithTx(tx).UpdateStatusCAS(ctx, car.ID, car.Version, fleet.StatusIdle)
			if err != nil {
				return err
			}
			if !ok {
				return errCASConflict
			}
			return nil
		})
		if txErr != nil {
			if errors.Is(txErr, errCASConflict) {
				continue
			}
			return nil, errs.Internal("failed to end lease", txErr)
		}

		if m.metrics != nil {
			m.metrics.LeasesEnded.Inc()
		}
		m.notifyChange(ctx)

		endDate := now
		return &Detail{
			ID:        l.ID,
			StartDate: l.StartDate,
			EndDate:   &endDate,
			Status:    StatusEnded,
			Car: CarSummary{
				ID:      car.ID,
				Model:   car.Model,
				Variant: car.Variant,
			},
		}, nil
	}

	return nil, errs.Conflict("lease", leaseID, "concurrent lease operation conflict, retry")
}

// leaseDetailsForCustomer 组装客户全部租约 + 车辆摘要。
func (m *Manager) leaseDetailsForCustomer(ctx context.Context, customerID uint) ([]Detail, error) {
	leases, err := m.leases.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, errs.Internal("failed to load customer leases", err)
	}
	return BuildDetails(ctx, m.cars, leases)
}

// BuildDetails 为一组租约批量拉取车辆摘要并组装 Detail 列表。
func BuildDetails(ctx context.Context, cars *fleet.CarRepo, leases []Lease) ([]Detail, error) {
	if len(leases) == 0 {
		return []Detail{}, nil
	}

	carIDs := make([]uint, 0, len(leases))
	seen := make(map[uint]struct{}, len(leases))
	for _, l := range leases {
		if _, ok := seen[l.CarID]; ok {
			continue
		}
		seen[l.CarID] = struct{}{}
		carIDs = append(carIDs, l.CarID)
	}

	found, err := cars.FindByIDs(ctx, carIDs)
	if err != nil {
		return nil, errs.Internal("failed to load lease cars", err)
	}
	byID := make(map[uint]fleet.Car, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	details := make([]Detail, 0, len(leases))
	for _, l := range leases {
		d := Detail{
			ID:        l.ID,
			StartDate: l.StartDate,
			EndDate:   l.EndDate,
			Status:    l.Status,
		}
		if c, ok := byID[l.CarID]; ok {
			d.Car = CarSummary{ID: c.ID, Model: c.Model, Variant: c.Variant}
		}
		details = append(details, d)
	}
	return details, nil
}

func (m *Manager) countConflict(reason string) {
	if m.metrics != nil {
		m.metrics.LeaseConflicts.WithLabelValues(reason).Inc()
	}
}

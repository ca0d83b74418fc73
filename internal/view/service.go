package view

import (
	"context"
	"errors"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/CarLeaseHub/CarLeaseHub/internal/lease"
	"gorm.io/gorm"
)

// Service 只读投影：车主、车辆、客户、租约的各类列表视图。
// 不做任何写入，也不改变实体状态；空闲车辆列表走 Redis 缓存（cache 可为 nil）。
type Service struct {
	owners    *fleet.OwnerRepo
	cars      *fleet.CarRepo
	customers *customer.Repo
	leases    *lease.Repo
	cache     *CarCache
}

func NewService(db *gorm.DB, cache *CarCache) *Service {
	return &Service{
		owners:    fleet.NewOwnerRepo(db),
		cars:      fleet.NewCarRepo(db),
		customers: customer.NewRepo(db),
		leases:    lease.NewRepo(db),
		cache:     cache,
	}
}

// InvalidateCars 失效空闲车辆缓存；注入给 lease.Manager / fleet.Registry 的变更回调。
func (s *Service) InvalidateCars(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// OwnerView 车主 + 名下全部车辆。
type OwnerView struct {
	fleet.Owner
	Cars []fleet.Car `json:"cars"`
}

// CustomerView 客户 + 全部租约（含车辆摘要）。
type CustomerView struct {
	customer.Customer
	Leases []lease.Detail `json:"leases"`
}

// ListOwners 全部车主及其车辆。
func (s *Service) ListOwners(ctx context.Context) ([]OwnerView, error) {
	owners, err := s.owners.FindAll(ctx)
	if err != nil {
		return nil, errs.Internal("failed to list owners", err)
	}

	cars, err := s.cars.FindAll(ctx)
	if err != nil {
		return nil, errs.Internal("failed to list cars", err)
	}
	byOwner := make(map[uint][]fleet.Car, len(owners))
	for _, c := range cars {
		byOwner[c.OwnerID] = append(byOwner[c.OwnerID], c)
	}

	views := make([]OwnerView, 0, len(owners))
	for _, o := range owners {
		ownerCars := byOwner[o.ID]
		if ownerCars == nil {
			ownerCars = []fleet.Car{}
		}
		views = append(views, OwnerView{Owner: o, Cars: ownerCars})
	}
	return views, nil
}

// GetOwner 单个车主及其车辆。
func (s *Service) GetOwner(ctx context.Context, id uint) (*OwnerView, error) {
	o, err := s.owners.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("owner", id)
		}
		return nil, errs.Internal("failed to load owner", err)
	}

	cars, err := s.cars.FindByOwnerID(ctx, o.ID)
	if err != nil {
		return nil, errs.Internal("failed to load owner cars", err)
	}
	if cars == nil {
		cars = []fleet.Car{}
	}
	return &OwnerView{Owner: *o, Cars: cars}, nil
}

// ListCustomers 全部客户及其租约。
func (s *Service) ListCustomers(ctx context.Context) ([]CustomerView, error) {
	customers, err := s.customers.FindAll(ctx)
	if err != nil {
		return nil, errs.Internal("failed to list customers", err)
	}

	views := make([]CustomerView, 0, len(customers))
	for _, c := range customers {
		details, err := s.customerLeases(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, CustomerView{Customer: c, Leases: details})
	}
	return views, nil
}

// GetCustomer 单个客户及其租约。
func (s *Service) GetCustomer(ctx context.Context, id uint) (*CustomerView, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("customer", id)
		}
		return nil, errs.Internal("failed to load customer", err)
	}

	details, err := s.customerLeases(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &CustomerView{Customer: *c, Leases: details}, nil
}

// CarView 车辆 + 其全部租约历史。
type CarView struct {
	fleet.Car
	Leases []lease.Detail `json:"leases"`
}

// GetCar 单辆车及其租约历史。
func (s *Service) GetCar(ctx context.Context, id uint) (*CarView, error) {
	c, err := s.cars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("car", id)
		}
		return nil, errs.Internal("failed to load car", err)
	}

	leases, err := s.leases.FindByCarID(ctx, c.ID)
	if err != nil {
		return nil, errs.Internal("failed to load car leases", err)
	}
	details, err := lease.BuildDetails(ctx, s.cars, leases)
	if err != nil {
		return nil, err
	}
	return &CarView{Car: *c, Leases: details}, nil
}

// GetLease 单条租约（含车辆摘要）。
func (s *Service) GetLease(ctx context.Context, id uint) (*lease.Detail, error) {
	l, err := s.leases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("lease", id)
		}
		return nil, errs.Internal("failed to load lease", err)
	}

	details, err := lease.BuildDetails(ctx, s.cars, []lease.Lease{*l})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// OwnerLeases 车主名下所有车辆的租约历史。
func (s *Service) OwnerLeases(ctx context.Context, ownerID uint) ([]lease.Detail, error) {
	o, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("owner", ownerID)
		}
		return nil, errs.Internal("failed to load owner", err)
	}

	cars, err := s.cars.FindByOwnerID(ctx, o.ID)
	if err != nil {
		return nil, errs.Internal("failed to load owner cars", err)
	}
	carIDs := make([]uint, 0, len(cars))
	for _, c := range cars {
		carIDs = append(carIDs, c.ID)
	}
	leases, err := s.leases.FindByCarIDs(ctx, carIDs)
	if err != nil {
		return nil, errs.Internal("failed to load owner leases", err)
	}
	return lease.BuildDetails(ctx, s.cars, leases)
}

// AvailableCars 可出租（idle）的车辆列表；优先读缓存，未命中回源并回填。
func (s *Service) AvailableCars(ctx context.Context) ([]fleet.Car, error) {
	if cars, ok := s.cache.GetAvailable(ctx); ok {
		return cars, nil
	}

	cars, err := s.cars.FindByStatus(ctx, fleet.StatusIdle)
	if err != nil {
		return nil, errs.Internal("failed to list available cars", err)
	}
	if cars == nil {
		cars = []fleet.Car{}
	}
	s.cache.SetAvailable(ctx, cars)
	return cars, nil
}

// CarsByStatus 按状态过滤车辆；status 为空返回全部。
func (s *Service) CarsByStatus(ctx context.Context, status fleet.Status) ([]fleet.Car, error) {
	if status == "" {
		cars, err := s.cars.FindAll(ctx)
		if err != nil {
			return nil, errs.Internal("failed to list cars", err)
		}
		return cars, nil
	}
	if !fleet.ValidStatus(status) {
		return nil, errs.Invalid("unknown car status: " + string(status))
	}

	cars, err := s.cars.FindByStatus(ctx, status)
	if err != nil {
		return nil, errs.Internal("failed to list cars", err)
	}
	if cars == nil {
		cars = []fleet.Car{}
	}
	return cars, nil
}

// LeasesByStatus 按状态过滤租约；status 为空返回全部。
func (s *Service) LeasesByStatus(ctx context.Context, status lease.Status) ([]lease.Detail, error) {
	var (
		leases []lease.Lease
		err    error
	)
	switch status {
	case "":
		leases, err = s.leases.FindAll(ctx)
	case lease.StatusActive, lease.StatusEnded:
		leases, err = s.leases.FindByStatus(ctx, status)
	default:
		return nil, errs.Invalid("unknown lease status: " + string(status))
	}
	if err != nil {
		return nil, errs.Internal("failed to list leases", err)
	}
	return lease.BuildDetails(ctx, s.cars, leases)
}

// CustomerLeases 指定客户的全部租约。
func (s *Service) CustomerLeases(ctx context.Context, customerID uint) ([]lease.Detail, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("customer", customerID)
		}
		return nil, errs.Internal("failed to load customer", err)
	}
	return s.customerLeases(ctx, customerID)
}

func (s *Service) customerLeases(ctx context.Context, customerID uint) ([]lease.Detail, error) {
	leases, err := s.leases.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, errs.Internal("failed to load customer leases", err)
	}
	return lease.BuildDetails(ctx, s.cars, leases)
}

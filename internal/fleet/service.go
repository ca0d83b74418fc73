package fleet

import (
	"context"
	"errors"
	"strings"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"gorm.io/gorm"
)

// LeaseStore 车辆/车主级联删除需要的租约清理操作。
// 由 lease 包实现、main 注入，避免 fleet 反向依赖 lease。
type LeaseStore interface {
	DeleteByCarIDs(ctx context.Context, tx *gorm.DB, carIDs []uint) error
}

// Registry 车队管理：车主与车辆的增删改。
// 不包含任何租赁规则，只保证新注册车辆默认空闲。
type Registry struct {
	db       *gorm.DB
	owners   *OwnerRepo
	cars     *CarRepo
	leases   LeaseStore
	onChange func(ctx context.Context)
}

// SetOnChange 注册车辆集合变化后的回调（用于失效读侧缓存）。
func (s *Registry) SetOnChange(fn func(ctx context.Context)) {
	if s != nil {
		s.onChange = fn
	}
}

func (s *Registry) notifyChange(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func NewRegistry(db *gorm.DB, leases LeaseStore) *Registry {
	return &Registry{
		db:     db,
		owners: NewOwnerRepo(db),
		cars:   NewCarRepo(db),
		leases: leases,
	}
}

// OwnerInput 创建/更新车主的入参。
type OwnerInput struct {
	Name        string
	Email       string
	PhoneNumber string
}

// CarSpec 注册车辆的入参。
type CarSpec struct {
	Model   string
	Variant string
}

// CarUpdate 更新车辆信息的入参。
type CarUpdate struct {
	ID      uint
	Model   string
	Variant string
}

// OwnerCars 车辆注册/更新操作的结果：车主标识 + 涉及的车辆。
type OwnerCars struct {
	OwnerID   uint
	OwnerName string
	Cars      []Car
}

func (s *Registry) CreateOwner(ctx context.Context, in OwnerInput) (*Owner, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("registry not initialized", nil)
	}
	if err := validateOwnerInput(in); err != nil {
		return nil, err
	}

	o := &Owner{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
	if err := s.owners.Create(ctx, o); err != nil {
		return nil, errs.Internal("failed to save owner", err)
	}
	return o, nil
}

func (s *Registry) UpdateOwner(ctx context.Context, id uint, in OwnerInput) (*Owner, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("registry not initialized", nil)
	}
	if err := validateOwnerInput(in); err != nil {
		return nil, err
	}

	o, err := s.owners.FindByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "owner", id)
	}

	o.Name = strings.TrimSpace(in.Name)
	o.Email = strings.TrimSpace(in.Email)
	o.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.owners.Save(ctx, o); err != nil {
		return nil, errs.Internal("failed to update owner", err)
	}
	return o, nil
}

// DeleteOwner 删除车主，并级联删除其所有车辆和这些车辆的租约。
// 级联在一个事务内完成，不依赖 ORM 的隐式级联语义。
func (s *Registry) DeleteOwner(ctx context.Context, id uint) error {
	if s == nil || s.db == nil {
		return errs.Internal("registry not initialized", nil)
	}

	if _, err := s.owners.FindByID(ctx, id); err != nil {
		return asNotFound(err, "owner", id)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cars, err := s.cars.WithTx(tx).FindByOwnerID(ctx, id)
		if err != nil {
			return err
		}
		if len(cars) > 0 && s.leases != nil {
			carIDs := make([]uint, 0, len(cars))
			for _, c := range cars {
				carIDs = append(carIDs, c.ID)
			}
			if err := s.leases.DeleteByCarIDs(ctx, tx, carIDs); err != nil {
				return err
			}
		}
		if err := s.cars.WithTx(tx).DeleteByOwnerID(ctx, id); err != nil {
			return err
		}
		return s.owners.WithTx(tx).DeleteByID(ctx, id)
	})
	if err != nil {
		return errs.Internal("failed to delete owner", err)
	}
	s.notifyChange(ctx)
	return nil
}

// RegisterCars 为车主批量注册车辆；新车一律默认空闲状态。
func (s *Registry) RegisterCars(ctx context.Context, ownerID uint, specs []CarSpec) (*OwnerCars, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("registry not initialized", nil)
	}
	if len(specs) == 0 {
		return nil, errs.Invalid("cars required")
	}

	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		return nil, asNotFound(err, "owner", ownerID)
	}

	cars := make([]*Car, 0, len(specs))
	for _, spec := range specs {
		model := strings.TrimSpace(spec.Model)
		variant := strings.TrimSpace(spec.Variant)
		if model == "" || variant == "" {
			return nil, errs.Invalid("car model/variant required")
		}
		cars = append(cars, &Car{
			OwnerID: owner.ID,
			Model:   model,
			Variant: variant,
			Status:  StatusIdle,
		})
	}

	if err := s.cars.CreateBatch(ctx, cars); err != nil {
		return nil, errs.Internal("failed to register cars", err)
	}
	s.notifyChange(ctx)

	out := make([]Car, 0, len(cars))
	for _, c := range cars {
		out = append(out, *c)
	}
	return &OwnerCars{OwnerID: owner.ID, OwnerName: owner.Name, Cars: out}, nil
}

// UpdateCarDetails 批量更新车主名下车辆的型号/配置。
// 租赁中或维保中的车辆状态保持不变：状态只能由租赁/维保流程变更，
// 信息编辑不得把 on_lease 的车重置回 idle。
func (s *Registry) UpdateCarDetails(ctx context.Context, ownerID uint, updates []CarUpdate) (*OwnerCars, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("registry not initialized", nil)
	}
	if len(updates) == 0 {
		return nil, errs.Invalid("cars required")
	}

	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		return nil, asNotFound(err, "owner", ownerID)
	}

	updated := make([]Car, 0, len(updates))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carsTx := s.cars.WithTx(tx)
		for _, u := range updates {
			model := strings.TrimSpace(u.Model)
			variant := strings.TrimSpace(u.Variant)
			if model == "" || variant == "" {
				return errs.Invalid("car model/variant required")
			}
			car, err := carsTx.FindByID(ctx, u.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.NotFound("car", u.ID)
				}
				return err
			}
			if car.OwnerID != owner.ID {
				return errs.NotFound("car", u.ID)
			}
			// 只写型号/配置列：状态和版本号由租赁流程的 CAS 维护，
			// 整行覆写会把并发开租的结果冲掉
			if err := carsTx.UpdateDetails(ctx, car.ID, model, variant); err != nil {
				return err
			}
			car.Model = model
			car.Variant = variant
			updated = append(updated, *car)
		}
		return nil
	})
	if err != nil {
		var de *errs.Error
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, errs.Internal("failed to update cars", err)
	}
	s.notifyChange(ctx)

	return &OwnerCars{OwnerID: owner.ID, OwnerName: owner.Name, Cars: updated}, nil
}

// DeleteCar 删除车主名下的一辆车，并级联删除其租约。
func (s *Registry) DeleteCar(ctx context.Context, ownerID, carID uint) error {
	if s == nil || s.db == nil {
		return errs.Internal("registry not initialized", nil)
	}

	if _, err := s.owners.FindByID(ctx, ownerID); err != nil {
		return asNotFound(err, "owner", ownerID)
	}
	car, err := s.cars.FindByID(ctx, carID)
	if err != nil || car.OwnerID != ownerID {
		return errs.NotFound("car", carID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.leases != nil {
			if err := s.leases.DeleteByCarIDs(ctx, tx, []uint{car.ID}); err != nil {
				return err
			}
		}
		return s.cars.WithTx(tx).DeleteByID(ctx, car.ID)
	})
	if err != nil {
		return errs.Internal("failed to delete car", err)
	}
	s.notifyChange(ctx)
	return nil
}

func validateOwnerInput(in OwnerInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errs.Invalid("name required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return errs.Invalid("email required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return errs.Invalid("phone_number required")
	}
	return nil
}

// asNotFound 把 gorm 的记录不存在错误翻译为领域错误。
func asNotFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity, id)
	}
	return errs.Internal("failed to load "+entity, err)
}

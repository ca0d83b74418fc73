package fleet

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// OwnerRepo owners 表的数据访问。
type OwnerRepo struct {
	db *gorm.DB
}

func NewOwnerRepo(db *gorm.DB) *OwnerRepo {
	return &OwnerRepo{db: db}
}

// WithTx 返回绑定到指定事务的 repo。
func (r *OwnerRepo) WithTx(tx *gorm.DB) *OwnerRepo {
	return &OwnerRepo{db: tx}
}

func (r *OwnerRepo) Create(ctx context.Context, o *Owner) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OwnerRepo) Save(ctx context.Context, o *Owner) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OwnerRepo) FindByID(ctx context.Context, id uint) (*Owner, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var o Owner
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OwnerRepo) FindAll(ctx context.Context) ([]Owner, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var owners []Owner
	if err := r.db.WithContext(ctx).Order("id").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *OwnerRepo) DeleteByID(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Delete(&Owner{}, id).Error
}

// CarRepo cars 表的数据访问。
type CarRepo struct {
	db *gorm.DB
}

func NewCarRepo(db *gorm.DB) *CarRepo {
	return &CarRepo{db: db}
}

// WithTx 返回绑定到指定事务的 repo。
func (r *CarRepo) WithTx(tx *gorm.DB) *CarRepo {
	return &CarRepo{db: tx}
}

func (r *CarRepo) CreateBatch(ctx context.Context, cars []*Car) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(cars).Error
}

// UpdateDetails 只更新型号/配置列，不触碰 status 和 version。
func (r *CarRepo) UpdateDetails(ctx context.Context, id uint, model, variant string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Model(&Car{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"model":   model,
			"variant": variant,
		}).Error
}

func (r *CarRepo) FindByID(ctx context.Context, id uint) (*Car, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Car
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CarRepo) FindByIDs(ctx context.Context, ids []uint) ([]Car, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var cars []Car
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *CarRepo) FindAll(ctx context.Context) ([]Car, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var cars []Car
	if err := r.db.WithContext(ctx).Order("id").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *CarRepo) FindByOwnerID(ctx context.Context, ownerID uint) ([]Car, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var cars []Car
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *CarRepo) FindByStatus(ctx context.Context, status Status) ([]Car, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var cars []Car
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("id").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *CarRepo) DeleteByID(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Delete(&Car{}, id).Error
}

func (r *CarRepo) DeleteByOwnerID(ctx context.Context, ownerID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&Car{}).Error
}

// UpdateStatusCAS 用乐观锁更新车辆状态：仅当版本号匹配时生效。
// 返回 false 表示版本冲突（并发修改），调用方应重读重试。
func (r *CarRepo) UpdateStatusCAS(ctx context.Context, id uint, version int64, to Status) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	res := r.db.WithContext(ctx).Model(&Car{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"status":  to,
			"version": version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

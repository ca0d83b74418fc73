package lease

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repo leases 表的数据访问。
// 级联删除方法带显式 tx 入参，以便 fleet / customer 的删除事务复用
// （*Repo 直接满足它们声明的 LeaseStore 接口）。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx 返回绑定到指定事务的 repo。
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) Create(ctx context.Context, l *Lease) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) FindByID(ctx context.Context, id uint) (*Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var l Lease
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) FindByCustomerID(ctx context.Context, customerID uint) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *Repo) FindByCustomerIDAndStatus(ctx context.Context, customerID uint, status Status) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, status).
		Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *Repo) CountByCustomerIDAndStatus(ctx context.Context, customerID uint, status Status) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&Lease{}).
		Where("customer_id = ? AND status = ?", customerID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) FindByStatus(ctx context.Context, status Status) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *Repo) FindAll(ctx context.Context) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *Repo) FindByCarID(ctx context.Context, carID uint) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).Where("car_id = ?", carID).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *Repo) FindByCarIDs(ctx context.Context, carIDs []uint) ([]Lease, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if len(carIDs) == 0 {
		return nil, nil
	}
	var leases []Lease
	if err := r.db.WithContext(ctx).Where("car_id IN ?", carIDs).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

// EndCAS 结束租约：状态谓词即 CAS，只有仍然 active 的租约会被更新。
// 返回 false 表示租约已不是 active（并发结束或重复结束）。
func (r *Repo) EndCAS(ctx context.Context, id uint, endedAt time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	res := r.db.WithContext(ctx).Model(&Lease{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{
			"status":   StatusEnded,
			"end_date": endedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteByCarIDs 删除指定车辆的全部租约（车辆/车主级联删除用）。
func (r *Repo) DeleteByCarIDs(ctx context.Context, tx *gorm.DB, carIDs []uint) error {
	if r == nil {
		return fmt.Errorf("repo is nil")
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if len(carIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("car_id IN ?", carIDs).Delete(&Lease{}).Error
}

// DeleteByCustomerID 删除指定客户的全部租约（客户级联删除用）。
func (r *Repo) DeleteByCustomerID(ctx context.Context, tx *gorm.DB, customerID uint) error {
	if r == nil {
		return fmt.Errorf("repo is nil")
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&Lease{}).Error
}

package customer

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repo customers 表的数据访问。
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

func (r *Repo) Create(ctx context.Context, c *Customer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(c).Error
}

// UpdateProfile 只更新档案列，不触碰 version。
func (r *Repo) UpdateProfile(ctx context.Context, id uint, name, email, phoneNumber string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Model(&Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":         name,
			"email":        email,
			"phone_number": phoneNumber,
		}).Error
}

func (r *Repo) FindByID(ctx context.Context, id uint) (*Customer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) FindAll(ctx context.Context) ([]Customer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var customers []Customer
	if err := r.db.WithContext(ctx).Order("id").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *Repo) DeleteByID(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Delete(&Customer{}, id).Error
}

// BumpVersionCAS 乐观锁自增版本号：仅当版本号匹配时生效。
// 开租流程靠它串行化同一客户的“活跃租约数 ≤ 2”校验。
func (r *Repo) BumpVersionCAS(ctx context.Context, id uint, version int64) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	res := r.db.WithContext(ctx).Model(&Customer{}).
		Where("id = ? AND version = ?", id, version).
		Update("version", version+1)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

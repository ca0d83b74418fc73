package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"gorm.io/gorm"
)

// LeaseStore 客户级联删除需要的租约清理操作（由 lease 包实现、main 注入）。
type LeaseStore interface {
	DeleteByCustomerID(ctx context.Context, tx *gorm.DB, customerID uint) error
}

// Service 客户档案的增删改；租赁规则一律在 lease 包。
type Service struct {
	db     *gorm.DB
	repo   *Repo
	leases LeaseStore
}

func NewService(db *gorm.DB, leases LeaseStore) *Service {
	return &Service{
		db:     db,
		repo:   NewRepo(db),
		leases: leases,
	}
}

// Input 创建/更新客户的入参。
type Input struct {
	Name        string
	Email       string
	PhoneNumber string
}

func (s *Service) Register(ctx context.Context, in Input) (*Customer, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("service not initialized", nil)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c := &Customer{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errs.Internal("failed to save customer", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*Customer, error) {
	if s == nil || s.db == nil {
		return nil, errs.Internal("service not initialized", nil)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("customer", id)
		}
		return nil, errs.Internal("failed to load customer", err)
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	// 只写档案列：version 由开租流程的 CAS 维护，整行覆写会把并发的版本自增冲掉
	if err := s.repo.UpdateProfile(ctx, c.ID, c.Name, c.Email, c.PhoneNumber); err != nil {
		return nil, errs.Internal("failed to update customer", err)
	}
	return c, nil
}

// Delete 删除客户，并级联删除其全部租约（显式多步删除，事务内完成）。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if s == nil || s.db == nil {
		return errs.Internal("service not initialized", nil)
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("customer", id)
		}
		return errs.Internal("failed to load customer", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.leases != nil {
			if err := s.leases.DeleteByCustomerID(ctx, tx, id); err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).DeleteByID(ctx, id)
	})
	if err != nil {
		return errs.Internal("failed to delete customer", err)
	}
	return nil
}

func validateInput(in Input) error {
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

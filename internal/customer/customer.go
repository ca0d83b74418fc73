package customer

import "time"

// Customer 是 customers 表的 GORM 模型。
type Customer struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Email       string    `gorm:"size:128;not null" json:"email"`
	PhoneNumber string    `gorm:"size:32;not null" json:"phone_number"`
	Version     int64     `gorm:"not null;default:0" json:"-"` // 乐观锁版本号，开租时 CAS 自增以串行化租约数校验
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

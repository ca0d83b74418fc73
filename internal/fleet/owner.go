package fleet

import "time"

// Owner 是 owners 表的 GORM 模型。
type Owner struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Email       string    `gorm:"size:128;not null" json:"email"`
	PhoneNumber string    `gorm:"size:32;not null" json:"phone_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

package fleet

import "time"

// Status 车辆状态枚举（持久化为字符串）。
type Status string

const (
	StatusIdle      Status = "idle"       // 空闲，可出租
	StatusOnLease   Status = "on_lease"   // 租赁中
	StatusOnService Status = "on_service" // 维保中（仅由维保流程设置，租赁操作不得覆盖）
)

// ValidStatus 判断是否是已知的车辆状态。
func ValidStatus(s Status) bool {
	switch s {
	case StatusIdle, StatusOnLease, StatusOnService:
		return true
	}
	return false
}

// Car 是 cars 表的 GORM 模型。
// 外键只存 owner_id，不做对象反向引用；车与车主的关系查询走 repo。
type Car struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Model     string    `gorm:"size:64;not null" json:"model"`
	Variant   string    `gorm:"size:64;not null" json:"variant"`
	Status    Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	Version   int64     `gorm:"not null;default:0" json:"-"` // 乐观锁版本号，租赁状态变更用 CAS 更新
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

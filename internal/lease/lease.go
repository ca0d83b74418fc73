package lease

import "time"

// Status 租约状态枚举（持久化为字符串）。
type Status string

const (
	StatusActive Status = "active" // 生效中
	StatusEnded  Status = "ended"  // 已结束（终态，不可再流转）
)

// Lease 是 leases 表的 GORM 模型。
// 只存 car_id / customer_id 外键，归属关系创建后不可变；
// 租约是只追加的历史记录，结束后不再修改。
type Lease struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	CarID      uint       `gorm:"index;not null"`
	CustomerID uint       `gorm:"index;not null"`
	StartDate  time.Time  `gorm:"not null"`
	EndDate    *time.Time // 生效中为 null，结束时写入
	Status     Status     `gorm:"type:varchar(16);index;not null"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime"`
}

// CarSummary 租约响应里内嵌的车辆摘要。
type CarSummary struct {
	ID      uint   `json:"id"`
	Model   string `json:"model"`
	Variant string `json:"variant"`
}

// Detail 单条租约的完整视图（含车辆摘要）。
type Detail struct {
	ID        uint       `json:"id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Status    Status     `json:"status"`
	Car       CarSummary `json:"car"`
}

// StartResult 开租操作的结果：客户标识 + 该客户当前全部租约。
type StartResult struct {
	CustomerID   uint     `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	Leases       []Detail `json:"leases"`
}

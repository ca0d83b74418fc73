package lease

import (
	"fmt"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
)

// AllowTransition 定义租约状态机的允许流转关系。
// 租约只有一次 active -> ended 的流转；ended 是终态。
var AllowTransition = map[Status][]Status{
	StatusActive: {StatusEnded},
	StatusEnded:  {},
}

// carLeaseTransition 定义租赁操作允许触碰的车辆状态流转。
// on_service 不在表里：维保状态只能由维保流程进出，租赁操作碰到它必须失败。
var carLeaseTransition = map[fleet.Status][]fleet.Status{
	fleet.StatusIdle:    {fleet.StatusOnLease},
	fleet.StatusOnLease: {fleet.StatusIdle},
}

// CanTransition 判断 from -> to 是否是一个允许的租约状态流转。
// 注意：不允许自流转，重复结束同一租约是业务冲突。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// CanLeaseCarTransition 判断租赁操作是否允许把车辆从 from 流转到 to。
func CanLeaseCarTransition(from, to fleet.Status) bool {
	allowed, ok := carLeaseTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对租约应用状态变更，并维护结束时间。
// 仅在 CanTransition 返回 true 时生效。
func ApplyTransition(l *Lease, to Status, now time.Time) error {
	if l == nil {
		return fmt.Errorf("lease is nil")
	}
	from := l.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid lease status transition: %s -> %s", from, to)
	}

	l.Status = to

	if to == StatusEnded && l.EndDate == nil {
		t := now
		l.EndDate = &t
	}
	return nil
}

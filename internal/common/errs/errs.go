package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 领域错误分类
type Kind int

const (
	KindInternal Kind = iota // 持久化失败等意外错误
	KindNotFound             // 引用的实体不存在
	KindConflict             // 业务规则冲突（车不可租、租约数超限、重复结束）
	KindInvalid              // 请求参数非法
)

// Error 领域错误：携带实体类型和 ID，方便调用方拼出精确的提示信息。
type Error struct {
	Kind   Kind
	Entity string // owner / car / customer / lease
	ID     uint   // 涉及的实体 ID（0 表示与具体 ID 无关）
	Msg    string
	Err    error // 底层错误（可选）
}

func (e *Error) Error() string {
	if e.Entity != "" && e.ID != 0 {
		return fmt.Sprintf("%s id=%d: %s", e.Entity, e.ID, e.Msg)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound 实体不存在
func NotFound(entity string, id uint) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Msg: "not found"}
}

// Conflict 业务规则冲突
func Conflict(entity string, id uint, msg string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Msg: msg}
}

// Invalid 参数非法
func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Msg: msg}
}

// Internal 意外错误（包装底层 err）
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 提取错误分类；非领域错误一律按 Internal 处理。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 领域错误到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

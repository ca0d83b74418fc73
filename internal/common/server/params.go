package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamUint 解析路径参数为 uint ID。
func ParamUint(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return uint(v), nil
}

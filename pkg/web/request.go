package web

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindAndValidate 绑定请求体并校验，失败时写入错误响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			Error(c, CodeInvalidParams, errs.Error())
			return false
		}
		Error(c, CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

// ParamUint32 解析路径参数，失败时写入错误响应
func ParamUint32(c *gin.Context, key string) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param(key), 10, 32)
	if err != nil {
		Error(c, CodeInvalidParams, "invalid "+key+": "+c.Param(key))
		return 0, false
	}
	return uint32(v), true
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	return val
}

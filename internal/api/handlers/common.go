package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-planner/internal/pkg/common"
)

// ParseUserID 解析路徑中的使用者編號
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewFieldError("user_id", "使用者編號必須為正整數")
	}
	return id, nil
}

// AbortWithError 寫入錯誤響應並中止請求，5xx 會記錄日誌
func AbortWithError(c *gin.Context, err error) {
	status, code := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.String("code", code),
			zap.String("request_id", requestid.Get(c)),
		)
	}
	_ = c.Error(err)
	common.WriteError(c.Writer, err)
	c.Abort()
}

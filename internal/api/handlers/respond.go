package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"chefsire/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidation 讓驗證錯誤使用 JSON 欄位名稱
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

// BindError 將綁定或驗證失敗轉為共用錯誤
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
		}
		return common.ErrInvalidRequest.WithMessage("validation failed: " + strings.Join(msgs, "; "))
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return common.ErrPayloadTooLarge.Wrap(err)
	}
	return common.ErrInvalidRequest.Wrap(err)
}

// WriteError 依錯誤類型回傳對應的 HTTP 狀態與錯誤內容；debug 模式附上底層錯誤
func WriteError(c *gin.Context, err error) {
	if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		err = common.ErrGatewayTimeout.Wrap(err)
	}

	status := common.StatusOf(err)
	if status >= http.StatusInternalServerError {
		common.LogError("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, common.ToErrorResponse(err, gin.IsDebugging()))
}

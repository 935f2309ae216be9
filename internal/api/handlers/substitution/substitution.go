package substitution

import (
	"context"
	"net/http"

	"chefsire/internal/api/handlers"
	subService "chefsire/internal/core/substitution"

	"github.com/gin-gonic/gin"
)

// Service 替代建議服務
type Service interface {
	Suggest(ctx context.Context, ingredient string) (*subService.Result, error)
}

// Handler 食材替代建議處理器
type Handler struct {
	svc Service
}

// NewHandler 創建處理器
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register 註冊路由
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ingredients/:ingredient/substitutions", h.HandleSuggest)
}

// HandleSuggest GET /ingredients/:ingredient/substitutions
func (h *Handler) HandleSuggest(c *gin.Context) {
	res, err := h.svc.Suggest(c.Request.Context(), c.Param("ingredient"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

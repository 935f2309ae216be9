package recipe

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"chefsire/internal/api/handlers"
	recipeService "chefsire/internal/core/recipe"
	"chefsire/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Service 食譜處理器需要的服務
type Service interface {
	Search(ctx context.Context, q recipeService.SearchQuery) (*recipeService.SearchResult, error)
	Import(ctx context.Context, req recipeService.ImportRequest) (*recipeService.Recipe, error)
	Get(ctx context.Context, id string) (*recipeService.Recipe, error)
	Create(ctx context.Context, req recipeService.CreateRequest) (*recipeService.Recipe, error)
}

// Handler 食譜處理器
type Handler struct {
	svc Service
}

// NewHandler 創建食譜處理器
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register 註冊食譜路由；createMiddleware 只套用在新增食譜
func (h *Handler) Register(r gin.IRouter, createMiddleware ...gin.HandlerFunc) {
	r.GET("/recipes/search", h.HandleSearch)
	r.POST("/recipes/fetch", h.HandleFetch)
	r.POST("/recipes", append(createMiddleware, h.HandleCreate)...)
	r.GET("/recipes/:id", h.HandleGet)
}

// HandleSearch GET /recipes/search?q=&limit=&offset=
func (h *Handler) HandleSearch(c *gin.Context) {
	limit, err := intQuery(c, "limit", recipeService.DefaultLimit)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	res, err := h.svc.Search(c.Request.Context(), recipeService.SearchQuery{
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleFetch POST /recipes/fetch，body 為 {"idMeal": "..."} 或 {"name": "..."}
func (h *Handler) HandleFetch(c *gin.Context) {
	var req recipeService.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, handlers.BindError(err))
		return
	}

	rec, err := h.svc.Import(c.Request.Context(), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleCreate POST /recipes
func (h *Handler) HandleCreate(c *gin.Context) {
	var req recipeService.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, handlers.BindError(err))
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// HandleGet GET /recipes/:id
func (h *Handler) HandleGet(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.ErrInvalidQuery.WithMessage(key + " must be an integer")
	}
	return n, nil
}

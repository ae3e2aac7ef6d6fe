package tasks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parlour-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &Handler{svc: svc}

	elevated := auth.RequireRole(auth.RoleSuperAdmin)

	r.GET("", h.List)
	r.POST("", elevated, h.Create)
	r.PUT("/:id", elevated, h.Update)
	r.DELETE("/:id", elevated, h.Delete)

	// 状態変更だけは全ロール（現場のadminが進捗を付ける）
	r.PATCH("/:id/status", h.UpdateStatus)
}

// GET /tasks
func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(res), "data": res})
}

// POST /tasks
func (h *Handler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Title, assignedTo and dueDate are required"})
		return
	}

	res, err := h.svc.Create(c.Request.Context(), req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

// PUT /tasks/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	res, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// PATCH /tasks/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status is required"})
		return
	}

	res, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// DELETE /tasks/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

func errorBody(err error) gin.H {
	var api *APIError
	if errors.As(err, &api) {
		return gin.H{"success": false, "message": api.Message}
	}
	return gin.H{"success": false, "message": "Internal server error"}
}

package employees

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
}

// GET /employees
func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(res), "data": res})
}

// POST /employees
func (h *Handler) Create(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide all required fields"})
		return
	}

	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

// PUT /employees/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateEmployeeRequest
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

// DELETE /employees/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Employee deleted successfully"})
}

func errorBody(err error) gin.H {
	var api *APIError
	if errors.As(err, &api) {
		return gin.H{"success": false, "message": api.Message}
	}
	return gin.H{"success": false, "message": "Internal server error"}
}

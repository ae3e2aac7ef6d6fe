package attendance

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parlour-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &Handler{svc: svc}

	// 参照と打刻はどちらのロールでも可
	r.GET("", h.ListLogs)
	r.POST("", h.CreatePunch)
	r.GET("/daily", h.ListDaily)

	// 編集・削除は super-admin のみ
	elevated := auth.RequireRole(auth.RoleSuperAdmin)
	r.PUT("/:id", elevated, h.UpdatePunch)
	r.DELETE("/:id", elevated, h.DeletePunch)
}

// POST /attendance
func (h *Handler) CreatePunch(c *gin.Context) {
	var req CreatePunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Employee ID and type are required"})
		return
	}

	res, err := h.svc.RecordPunch(c.Request.Context(), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

// GET /attendance?date=&dateFrom=&dateTo=&employeeId=
func (h *Handler) ListLogs(c *gin.Context) {
	res, err := h.svc.ListLogs(c.Request.Context(), queryFilter(c))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// GET /attendance/daily?date=&dateFrom=&dateTo=&employeeId=
func (h *Handler) ListDaily(c *gin.Context) {
	res, err := h.svc.ListDaily(c.Request.Context(), queryFilter(c))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// PUT /attendance/:id
// body の形で単一更新か日次置き換えかを判別する（元API互換）
func (h *Handler) UpdatePunch(c *gin.Context) {
	var req UpdatePunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	switch {
	case req.Timestamp != nil && req.Type != nil:
		res, err := h.svc.UpdatePunch(c.Request.Context(), c.Param("id"), *req.Timestamp, *req.Type)
		if err != nil {
			c.JSON(ToHTTPStatus(err), errorBody(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": res, "message": "Attendance record updated successfully"})

	case req.CheckInTime != nil || req.CheckOutTime != nil:
		ids := splitIDs(c.Param("id"))
		if err := h.svc.ReplaceDaily(c.Request.Context(), ids, req.CheckInTime, req.CheckOutTime); err != nil {
			c.JSON(ToHTTPStatus(err), errorBody(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Attendance records updated successfully"})

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid update data. Please provide either timestamp and type for single record update, or checkInTime/checkOutTime for daily record update.",
		})
	}
}

// DELETE /attendance/:id（:id はカンマ連結可）
func (h *Handler) DeletePunch(c *gin.Context) {
	ids := splitIDs(c.Param("id"))
	count, err := h.svc.DeletePunches(c.Request.Context(), ids)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Successfully deleted attendance record(s)",
		"deletedCount": count,
	})
}

// ---------- helpers ----------

func queryFilter(c *gin.Context) ListQuery {
	q := ListQuery{}
	if v := c.Query("date"); v != "" {
		q.Date = &v
	} else if v := c.Query("dateOnly"); v != "" {
		// 旧クライアントは dateOnly で投げてくる
		q.Date = &v
	}
	if v := c.Query("dateFrom"); v != "" {
		q.From = &v
	}
	if v := c.Query("dateTo"); v != "" {
		q.To = &v
	}
	if v := c.Query("employeeId"); v != "" {
		q.EmployeeID = &v
	}
	return q
}

func splitIDs(param string) []string {
	raw := strings.Split(param, ",")
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func errorBody(err error) gin.H {
	var api *APIError
	if errors.As(err, &api) {
		return gin.H{"success": false, "message": api.Message}
	}
	return gin.H{"success": false, "message": "Internal server error"}
}

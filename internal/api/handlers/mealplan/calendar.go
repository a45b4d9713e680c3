package mealplan

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-planner/internal/api/handlers"
	"recipe-planner/internal/core/export"
	"recipe-planner/internal/core/grocery"
	mealplanService "recipe-planner/internal/core/mealplan"
	"recipe-planner/internal/pkg/common"
)

// EntryLister 列出餐點計畫
type EntryLister interface {
	Entries(ctx context.Context, userID int64, f mealplanService.Filter) ([]grocery.MealPlanEntry, error)
}

// Handler 餐點計畫處理程序
type Handler struct {
	svc      EntryLister
	calendar *export.Calendar
}

// NewHandler 創建餐點計畫處理程序
func NewHandler(svc EntryLister) *Handler {
	return &Handler{
		svc:      svc,
		calendar: export.NewCalendar(),
	}
}

// HandleCalendar 處理 GET /users/:user_id/meal-plans/calendar.ics
func (h *Handler) HandleCalendar(c *gin.Context) {
	userID, err := handlers.ParseUserID(c.Param("user_id"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	filter, err := mealplanService.ParseFilter(c.Query("start_date"), c.Query("end_date"), c.Query("meal_type"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	entries, err := h.svc.Entries(c.Request.Context(), userID, filter)
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.calendar.Render(&buf, entries); err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	common.LogDebug("Meal plan calendar exported",
		zap.Int64("user_id", userID),
		zap.Int("events", len(entries)),
		zap.String("request_id", requestid.Get(c)),
	)

	c.Header("Content-Disposition", `attachment; filename="`+export.CalendarFilename+`"`)
	c.Data(http.StatusOK, export.CalendarContentType, buf.Bytes())
}

package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// CalendarFilename iCal 下載檔名
const CalendarFilename = "meal-plans.ics"

// CalendarContentType iCal MIME 類型
const CalendarContentType = "text/calendar; charset=utf-8"

// 各餐別的開始時間 (時)
var mealStartHour = map[grocery.MealType]int{
	grocery.MealBreakfast: 8,
	grocery.MealLunch:     12,
	grocery.MealSnack:     15,
	grocery.MealDinner:    18,
	grocery.MealDessert:   20,
}

// Calendar 將餐點計畫輸出為 iCalendar，每個計畫一個事件
type Calendar struct {
	Location *time.Location
	Duration time.Duration
	Now      func() time.Time
}

// NewCalendar 建立預設 UTC、每餐一小時的 Calendar
func NewCalendar() *Calendar {
	return &Calendar{Location: time.UTC, Duration: time.Hour, Now: time.Now}
}

// Render 輸出 VCALENDAR
func (c *Calendar) Render(w io.Writer, entries []grocery.MealPlanEntry) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//recipe-planner//meal plans//EN")
	cal.SetXWRCalName("Meal Plans")

	stamp := c.Now().UTC()
	for _, e := range entries {
		start := c.startOf(e)

		event := cal.AddEvent(eventUID(e))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(c.Duration))
		event.SetSummary(eventSummary(e))
		if e.Notes != "" {
			event.SetDescription(e.Notes)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// RenderCalendar 以預設設定輸出 iCalendar
func RenderCalendar(w io.Writer, entries []grocery.MealPlanEntry) error {
	return NewCalendar().Render(w, entries)
}

func (c *Calendar) startOf(e grocery.MealPlanEntry) time.Time {
	hour, ok := mealStartHour[e.MealType]
	if !ok {
		hour = mealStartHour[grocery.MealDinner]
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, loc)
}

func eventUID(e grocery.MealPlanEntry) string {
	if e.ID > 0 {
		return fmt.Sprintf("meal-plan-%d@recipe-planner", e.ID)
	}
	return common.GenerateUUID() + "@recipe-planner"
}

func eventSummary(e grocery.MealPlanEntry) string {
	meal := string(e.MealType)
	if meal == "" {
		return e.RecipeTitle
	}
	return strings.ToUpper(meal[:1]) + meal[1:] + ": " + e.RecipeTitle
}

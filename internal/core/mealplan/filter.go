package mealplan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// Filter 餐點計畫查詢條件，nil 日期代表該端不設限
type Filter struct {
	Start     *time.Time
	End       *time.Time
	MealTypes []grocery.MealType
}

// ParseFilter 解析查詢參數
//
// mealTypes 以逗號分隔，例如 "breakfast,dinner"。
func ParseFilter(start, end, mealTypes string) (Filter, error) {
	var f Filter
	var err error

	if f.Start, err = common.ParseDate("start_date", start); err != nil {
		return Filter{}, err
	}
	if f.End, err = common.ParseDate("end_date", end); err != nil {
		return Filter{}, err
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return Filter{}, common.NewFieldError("start_date", "開始日期不可晚於結束日期")
	}

	seen := make(map[grocery.MealType]struct{})
	for _, raw := range strings.Split(mealTypes, ",") {
		mt := grocery.MealType(strings.ToLower(strings.TrimSpace(raw)))
		if mt == "" {
			continue
		}
		if !mt.Valid() {
			return Filter{}, common.NewFieldError("meal_type", fmt.Sprintf("未知的餐別 %q", mt))
		}
		if _, dup := seen[mt]; dup {
			continue
		}
		seen[mt] = struct{}{}
		f.MealTypes = append(f.MealTypes, mt)
	}

	return f, nil
}

// CacheKey 購物清單快取鍵 grocery:<user>:<start>:<end>:<types>
func (f Filter) CacheKey(userID int64) string {
	types := make([]string, 0, len(f.MealTypes))
	for _, mt := range f.MealTypes {
		types = append(types, string(mt))
	}
	sort.Strings(types)

	return userPrefix(userID) + common.FormatDate(f.Start) + ":" + common.FormatDate(f.End) + ":" + strings.Join(types, ",")
}

func userPrefix(userID int64) string {
	return "grocery:" + strconv.FormatInt(userID, 10) + ":"
}

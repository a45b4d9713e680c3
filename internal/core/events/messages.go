package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// 餐點計畫異動動作
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
	ActionUpdated = "updated"
)

// MealPlanChangedMessage 餐點計畫異動事件，收到後需讓該使用者的購物清單快取失效
type MealPlanChangedMessage struct {
	UserID     int64     `json:"user_id"`
	MealPlanID int64     `json:"meal_plan_id,omitempty"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMealPlanChangedMessage 建立事件
func NewMealPlanChangedMessage(userID, mealPlanID int64, action string) *MealPlanChangedMessage {
	return &MealPlanChangedMessage{
		UserID:     userID,
		MealPlanID: mealPlanID,
		Action:     action,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON 序列化
func (m *MealPlanChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MealPlanChangedMessageFromJSON 反序列化並檢查必要欄位
func MealPlanChangedMessageFromJSON(data []byte) (*MealPlanChangedMessage, error) {
	var msg MealPlanChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("invalid user_id %d", msg.UserID)
	}
	if msg.Action == "" {
		msg.Action = ActionUpdated
	}
	return &msg, nil
}

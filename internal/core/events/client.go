package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pkg/common"
)

// Handler 處理餐點計畫異動事件
type Handler func(ctx context.Context, msg *MealPlanChangedMessage) error

// Client RabbitMQ 事件客戶端
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewClient 連線並宣告 exchange 與 queue
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// direct exchange，routing key 與 queue 同名
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishMealPlanChanged 發布餐點計畫異動事件
func (c *Client) PublishMealPlanChanged(ctx context.Context, msg *MealPlanChangedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    common.GenerateUUID(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	common.LogDebug("Published meal plan event",
		zap.Int64("user_id", msg.UserID),
		zap.String("action", msg.Action),
		zap.String("exchange", c.exchange),
	)
	return nil
}

// Consume 持續消費事件直到 ctx 結束
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	common.LogInfo("開始消費餐點計畫事件", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			common.LogInfo("停止消費餐點計畫事件", zap.Error(ctx.Err()))
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handleDelivery(ctx, d.Body, d, handler)
		}
	}
}

// acknowledger amqp.Delivery 的確認介面
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handleDelivery 格式錯誤的訊息直接丟棄，處理失敗則重新排入佇列
func handleDelivery(ctx context.Context, body []byte, ack acknowledger, handler Handler) {
	msg, err := MealPlanChangedMessageFromJSON(body)
	if err != nil {
		common.LogError("Failed to decode meal plan event", zap.Error(err))
		metrics.EventsProcessed.WithLabelValues("unknown", "invalid").Inc()
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		common.LogError("Failed to handle meal plan event",
			zap.Int64("user_id", msg.UserID),
			zap.String("action", msg.Action),
			zap.Error(err),
		)
		metrics.EventsProcessed.WithLabelValues(msg.Action, "error").Inc()
		_ = ack.Nack(false, true)
		return
	}

	_ = ack.Ack(false)
	metrics.EventsProcessed.WithLabelValues(msg.Action, "ok").Inc()
	common.LogInfo(common.MsgEventConsumed,
		zap.Int64("user_id", msg.UserID),
		zap.Int64("meal_plan_id", msg.MealPlanID),
		zap.String("action", msg.Action),
	)
}

// Close 關閉 channel 與連線
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

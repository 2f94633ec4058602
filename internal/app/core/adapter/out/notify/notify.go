package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
)

const (
	// DefaultChannel Redis Pub/Sub 頻道
	DefaultChannel = "bank:notifications"

	defaultPublishTimeout = time.Second
)

// Message 發送給客戶的通知內容 (Redis 上的 JSON 格式)
type Message struct {
	CustomerID int64                       `json:"customer_id"`
	Category   domain.NotificationCategory `json:"category"`
	Message    string                      `json:"message"`
	SentAtMs   int64                       `json:"sent_at_ms"`
}

// LogNotifier 只把通知寫進 log，開發與測試環境使用
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, customerID int64, category domain.NotificationCategory, message string) {
	n.logger.Info("customer notification",
		zap.Int64("customer_id", customerID),
		zap.String("category", string(category)),
		zap.String("message", message))
}

// RedisNotifier 透過 Redis Pub/Sub 發布通知，由外部的推播服務訂閱
//
// 發布失敗只記錄 log，不影響已完成的交易。
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option RedisNotifier 的設定
type Option func(*RedisNotifier)

// WithChannel 設定發布的頻道
func WithChannel(channel string) Option {
	return func(n *RedisNotifier) {
		if channel != "" {
			n.channel = channel
		}
	}
}

// WithTimeout 設定單次發布的逾時
func WithTimeout(timeout time.Duration) Option {
	return func(n *RedisNotifier) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// NewRedisNotifier 建立 RedisNotifier
//
// 參數:
//
//	client: 已連線的 Redis 客戶端 (呼叫端負責關閉)
//	logger: 發布失敗時的 log 輸出
//	opts: 頻道、逾時等設定
func NewRedisNotifier(client redis.UniversalClient, logger *zap.Logger, opts ...Option) *RedisNotifier {
	n := &RedisNotifier{
		client:  client,
		channel: DefaultChannel,
		timeout: defaultPublishTimeout,
		logger:  logger.Named("notify"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *RedisNotifier) Notify(ctx context.Context, customerID int64, category domain.NotificationCategory, message string) {
	data, err := json.Marshal(Message{
		CustomerID: customerID,
		Category:   category,
		Message:    message,
		SentAtMs:   n.now().UnixMilli(),
	})
	if err != nil {
		n.logger.Error("marshal notification failed", zap.Error(err))
		return
	}

	// 請求結束不應取消已成立交易的通知
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.client.Publish(pubCtx, n.channel, data).Err(); err != nil {
		n.logger.Warn("publish notification failed",
			zap.String("channel", n.channel),
			zap.Int64("customer_id", customerID),
			zap.String("category", string(category)),
			zap.Error(err))
		return
	}
	n.logger.Debug("notification published",
		zap.String("channel", n.channel),
		zap.Int64("customer_id", customerID),
		zap.String("category", string(category)))
}

// Fanout 依序送給多個 Notifier
type Fanout []usecase.Notifier

func (f Fanout) Notify(ctx context.Context, customerID int64, category domain.NotificationCategory, message string) {
	for _, n := range f {
		n.Notify(ctx, customerID, category, message)
	}
}

var (
	_ usecase.Notifier = (*LogNotifier)(nil)
	_ usecase.Notifier = (*RedisNotifier)(nil)
	_ usecase.Notifier = Fanout(nil)
)

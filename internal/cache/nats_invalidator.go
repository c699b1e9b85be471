package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-level/internal/logging"
	"github.com/nats-io/nats.go"
)

// NATSInvalidator рассылает инвалидации чанков между узлами API через NATS.
// Собственные сообщения узла отбрасываются по NodeID.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string

	mu           sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler
	stopCh       chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup

	publishedCount atomic.Int64
	receivedCount  atomic.Int64
	errorsCount    atomic.Int64
}

// InvalidatorConfig настройки подключения к NATS
type InvalidatorConfig struct {
	NATSURL       string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// InvalidationMessage сообщение об инвалидации ключа
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NewNATSInvalidator подключается к NATS
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = 10
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name("voxel-level " + nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.GetCacheLogger().Warn("NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.GetCacheLogger().Info("NATS переподключён к %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к NATS: %w", err)
	}

	logging.GetCacheLogger().Info("NATS invalidator: %s (subject: %s)", config.NATSURL, config.Subject)
	return &NATSInvalidator{
		conn:    conn,
		config:  config,
		subject: config.Subject,
		nodeID:  nodeID,
		stopCh:  make(chan struct{}),
	}, nil
}

// PublishInvalidation отправляет уведомление об инвалидации ключа
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(InvalidationMessage{
		Key:       key,
		Timestamp: time.Now(),
		NodeID:    n.nodeID,
	})
	if err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("ошибка кодирования инвалидации: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		n.errorsCount.Add(1)
		logging.GetCacheLogger().Error("Не удалось опубликовать инвалидацию %s: %v", key, err)
		return fmt.Errorf("ошибка публикации инвалидации: %w", err)
	}

	n.publishedCount.Add(1)
	logging.GetCacheLogger().Trace("Инвалидация опубликована: %s", key)
	return nil
}

// SubscribeInvalidations подписывается на уведомления остальных узлов.
// Подписка снимается при отмене ctx или Close.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription != nil {
		return errors.New("подписка на инвалидации уже оформлена")
	}

	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("ошибка подписки на инвалидации: %w", err)
	}
	n.subscription = sub
	n.handler = handler

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()
	return nil
}

// Close снимает подписку и закрывает соединение
func (n *NATSInvalidator) Close() error {
	n.closeOnce.Do(func() {
		close(n.stopCh)
		n.wg.Wait()
		n.conn.Close()
		logging.GetCacheLogger().Info("NATS invalidator закрыт (отправлено %d, получено %d, ошибок %d)",
			n.publishedCount.Load(), n.receivedCount.Load(), n.errorsCount.Load())
	})
	return nil
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		n.errorsCount.Add(1)
		logging.GetCacheLogger().Error("Некорректное сообщение инвалидации: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}
	n.receivedCount.Add(1)

	n.mu.Lock()
	handler := n.handler
	n.mu.Unlock()
	if handler == nil {
		return
	}
	if err := handler(m.Key); err != nil {
		n.errorsCount.Add(1)
		logging.GetCacheLogger().Error("Обработчик инвалидации %s: %v", m.Key, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		logging.GetCacheLogger().Error("Ошибка отписки от инвалидаций: %v", err)
	}
	n.subscription = nil
}

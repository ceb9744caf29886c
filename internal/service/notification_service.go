package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/vastu-api/internal/dto"
	"github.com/noah-isme/vastu-api/internal/models"
	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/repository"
)

const (
	notificationBufferSize = 16
	recentEventCapacity    = 256
	// AdminAudience receives back-office alerts.
	AdminAudience = "admin"
)

var (
	// ErrNotificationEmpty indicates the message was empty once sanitised.
	ErrNotificationEmpty = errors.New("notification message empty after sanitization")
	// ErrNotificationNotFound indicates no notification with that id exists for the audience.
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationPublisher raises admin notifications.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// NotificationService publishes and streams admin notifications via SSE.
type NotificationService interface {
	NotificationPublisher
	List(ctx context.Context, audience string, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, audience string) (int64, error)
	MarkRead(ctx context.Context, id uint, audience string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, audience string) (int64, error)
	Subscribe(audience string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo         repository.NotificationRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	broker       *notificationBroker
	nodeID       string
	seen         *recentIDs
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// recentIDs remembers the last notification ids relayed from other nodes.
type recentIDs struct {
	mu    sync.Mutex
	ids   map[uint]struct{}
	order []uint
	next  int
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. Events cross nodes over exactly one
// transport: NATS when a connection is given, otherwise Redis pub/sub. Both are optional.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if channelBase != "" {
		if natsConn != nil {
			subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
		} else {
			channel = channelBase + ":notifications"
		}
	}

	return &notificationService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		validator:    validate,
		logger:       logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/vastu-api/internal/service/notification"),
		sanitizer:    bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
		seen:   newRecentIDs(recentEventCapacity),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.nats != nil && s.natsSubject != "":
		go s.consumeNATS(ctx)
	case s.redis != nil && s.redisChannel != "":
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanMessage := s.clean(payload.Message)
	if cleanMessage == "" {
		return dto.NotificationResponse{}, ErrNotificationEmpty
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.audience", payload.Audience),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		Audience: payload.Audience,
		Type:     payload.Type,
		Title:    s.clean(payload.Title),
		Message:  cleanMessage,
		Data:     datatypes.JSONMap(payload.Data),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.broker.broadcast(response.Audience, response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	observability.NotificationsPublished().WithLabelValues(response.Type).Inc()
	return response, nil
}

func (s *notificationService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *notificationService) List(ctx context.Context, audience string, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("audience is required")
	}

	notifications, err := s.repo.ListByAudience(ctx, audience, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, audience string) (int64, error) {
	return s.repo.CountUnread(ctx, audience)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, audience string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.audience", audience),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(ctx, id, audience)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, audience string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_all_read", trace.WithAttributes(
		attribute.String("notification.audience", audience),
	))
	defer span.End()

	changed, err := s.repo.MarkAllRead(ctx, audience)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("notification.changed", changed))
	return changed, nil
}

func (s *notificationService) Subscribe(audience string) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(audience, channel)
	observability.StreamClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(audience, channel)
			observability.StreamClients().Dec()
		})
	}
	return channel, cleanup
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	switch {
	case s.nats != nil && s.natsSubject != "":
		return s.nats.Publish(s.natsSubject, payload)
	case s.redis != nil && s.redisChannel != "":
		return s.redis.Publish(ctx, s.redisChannel, payload).Err()
	}
	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	// every node needs its own copy for its SSE clients, so no queue group
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}
	if event.Source == s.nodeID {
		return
	}
	if event.Notification.ID != 0 && !s.seen.add(event.Notification.ID) {
		return
	}

	s.broker.broadcast(event.Notification.Audience, event.Notification)
}

func (b *notificationBroker) subscribe(audience string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[audience]; !exists {
		b.subscribers[audience] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[audience][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(audience string, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[audience]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, audience)
		}
	}
}

// broadcast drops the event for subscribers whose buffer is full.
func (b *notificationBroker) broadcast(audience string, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[audience] {
		select {
		case ch <- notification:
		default:
		}
	}
}

func newRecentIDs(capacity int) *recentIDs {
	return &recentIDs{ids: make(map[uint]struct{}, capacity), order: make([]uint, capacity)}
}

// add reports false when id was already seen. The oldest id is forgotten once full.
func (r *recentIDs) add(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	if old := r.order[r.next]; old != 0 {
		delete(r.ids, old)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.ids[id] = struct{}{}
	return true
}

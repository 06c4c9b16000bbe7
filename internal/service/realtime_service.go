package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/observability"
)

const (
	realtimeSendBufferSize = 32
	realtimePingInterval   = 30 * time.Second
)

// RealtimeConnectionOptions wraps metadata extracted during the HTTP upgrade.
type RealtimeConnectionOptions struct {
	UserID        string
	UserName      string
	CorrelationID string
	Context       context.Context
}

// RealtimeService manages websocket connections and room-scoped event delivery.
type RealtimeService interface {
	EventPublisher
	ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions)
	Start(ctx context.Context)
}

type realtimeService struct {
	access       RoomAccessChecker
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *realtimeHub
	nodeID       string
}

// realtimeHub tracks which clients subscribed to which rooms.
type realtimeHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*realtimeClient]struct{}
	log   zerolog.Logger
}

type realtimeClient struct {
	conn    *websocket.Conn
	send    chan dto.RealtimeEvent
	options RealtimeConnectionOptions
	service *realtimeService
	closed  chan struct{}
	once    sync.Once
	// rooms is guarded by the hub mutex.
	rooms map[string]struct{}
}

type bridgeEnvelope struct {
	Source string            `json:"source"`
	Event  dto.RealtimeEvent `json:"event"`
}

// NewRealtimeService creates the websocket hub. Redis and NATS are optional fan-out bridges.
func NewRealtimeService(access RoomAccessChecker, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) RealtimeService {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":events"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &realtimeService{
		access:       access,
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "realtime_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/realtime"),
		hub: &realtimeHub{
			rooms: make(map[string]map[*realtimeClient]struct{}),
			log:   logger.With().Str("component", "realtime_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		ready := make(chan struct{})
		go s.consumeRedis(ctx, ready)
		<-ready
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.CorrelationID == "" {
		opts.CorrelationID = middleware.CorrelationIDFromContext(opts.Context)
	}

	client := &realtimeClient{
		conn:    conn,
		send:    make(chan dto.RealtimeEvent, realtimeSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		rooms:   make(map[string]struct{}),
	}

	observability.WebsocketConnections().Inc()
	s.logger.Debug().Str("user_id", opts.UserID).Str("correlation_id", opts.CorrelationID).Msg("realtime client connected")

	go client.writer()
	client.reader()
}

// Publish delivers the event to local subscribers of its room and forwards it to the bridges.
func (s *realtimeService) Publish(ctx context.Context, event dto.RealtimeEvent) error {
	_, span := s.tracer.Start(ctx, "realtime.publish", trace.WithAttributes(
		attribute.String("realtime.type", event.Type),
		attribute.String("realtime.room_id", event.RoomID),
	))
	defer span.End()

	if event.RoomID == "" {
		return errors.New("realtime event requires a room")
	}

	observability.RealtimeEvents().WithLabelValues(event.Type).Inc()
	s.hub.broadcast(event.RoomID, event, nil)

	if err := s.forward(ctx, event); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *realtimeService) forward(ctx context.Context, event dto.RealtimeEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(bridgeEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			observability.RealtimeBridgeFailures().WithLabelValues("redis").Inc()
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			observability.RealtimeBridgeFailures().WithLabelValues("nats").Inc()
			return err
		}
	}

	return nil
}

func (s *realtimeService) consumeRedis(ctx context.Context, ready chan<- struct{}) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		close(ready)
		observability.RealtimeBridgeFailures().WithLabelValues("redis").Inc()
		s.logger.Error().Err(err).Msg("failed to subscribe to redis realtime channel")
		return
	}
	close(ready)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handleBridged([]byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleBridged(msg.Data)
	})
	if err != nil {
		observability.RealtimeBridgeFailures().WithLabelValues("nats").Inc()
		s.logger.Error().Err(err).Msg("failed to subscribe to nats realtime subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
		}
	}()
}

func (s *realtimeService) handleBridged(data []byte) {
	var envelope bridgeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid bridged realtime event")
		return
	}
	if envelope.Source == s.nodeID || envelope.Event.RoomID == "" {
		return
	}

	observability.RealtimeEvents().WithLabelValues(envelope.Event.Type).Inc()
	s.hub.broadcast(envelope.Event.RoomID, envelope.Event, nil)
}

func (s *realtimeService) handleCommand(client *realtimeClient, cmd dto.RealtimeCommand) {
	roomID := strings.TrimSpace(cmd.RoomID)
	switch cmd.Type {
	case dto.EventJoinRoom:
		if roomID == "" {
			client.fail("", "roomId is required")
			return
		}
		if _, err := s.access.CanView(client.options.Context, client.options.UserID, roomID); err != nil {
			s.logger.Debug().Err(err).Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("join_room refused")
			client.fail(roomID, "room not available")
			return
		}
		if s.hub.join(client, roomID) {
			s.announcePresence(roomID)
		}
	case dto.EventLeaveRoom:
		if s.hub.leave(client, roomID) {
			s.announcePresence(roomID)
		}
	case dto.EventTyping:
		if !s.hub.subscribed(client, roomID) {
			return
		}
		typing := cmd.IsTyping
		s.hub.broadcast(roomID, dto.RealtimeEvent{
			Type:      dto.EventUserTyping,
			ID:        uuid.NewString(),
			RoomID:    roomID,
			Timestamp: time.Now().UTC(),
			UserID:    client.options.UserID,
			UserName:  client.options.UserName,
			IsTyping:  &typing,
		}, client)
	default:
		s.logger.Debug().Str("type", cmd.Type).Str("user_id", client.options.UserID).Msg("ignoring unknown realtime command")
	}
}

func (s *realtimeService) announcePresence(roomID string) {
	s.hub.broadcast(roomID, dto.RealtimeEvent{
		Type:      dto.EventOnlineUsers,
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
		Users:     s.hub.online(roomID),
	}, nil)
}

func (h *realtimeHub) join(client *realtimeClient, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := client.rooms[roomID]; ok {
		return false
	}
	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[*realtimeClient]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	client.rooms[roomID] = struct{}{}
	h.log.Debug().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("client joined room")
	return true
}

func (h *realtimeHub) leave(client *realtimeClient, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(client, roomID)
}

// drop removes the client from every room and returns the rooms it left.
func (h *realtimeHub) drop(client *realtimeClient) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	left := make([]string, 0, len(client.rooms))
	for roomID := range client.rooms {
		if h.removeLocked(client, roomID) {
			left = append(left, roomID)
		}
	}
	return left
}

func (h *realtimeHub) removeLocked(client *realtimeClient, roomID string) bool {
	if _, ok := client.rooms[roomID]; !ok {
		return false
	}
	delete(client.rooms, roomID)
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.log.Debug().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("client left room")
	return true
}

func (h *realtimeHub) subscribed(client *realtimeClient, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[roomID]
	return ok
}

// online lists the distinct users connected to a room, ordered by name.
func (h *realtimeHub) online(roomID string) []dto.UserSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	users := make([]dto.UserSummary, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		if _, ok := seen[client.options.UserID]; ok {
			continue
		}
		seen[client.options.UserID] = struct{}{}
		users = append(users, dto.UserSummary{ID: client.options.UserID, Name: client.options.UserName})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users
}

// broadcast queues the event for every subscriber of the room except skip.
func (h *realtimeHub) broadcast(roomID string, event dto.RealtimeEvent, skip *realtimeClient) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		if client == skip {
			continue
		}
		if !client.enqueue(event) {
			observability.RealtimeDropped().WithLabelValues("slow_consumer").Inc()
			h.log.Warn().Str("room_id", roomID).Str("user_id", client.options.UserID).Str("type", event.Type).Msg("dropping realtime event for slow client")
		}
	}
}

func (c *realtimeClient) enqueue(event dto.RealtimeEvent) bool {
	select {
	case <-c.closed:
		return true
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *realtimeClient) fail(roomID, message string) {
	c.enqueue(dto.RealtimeEvent{
		Type:      dto.EventError,
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
		Message:   message,
	})
}

func (c *realtimeClient) reader() {
	defer c.close()

	for {
		var cmd dto.RealtimeCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			c.service.logger.Debug().Err(err).Str("user_id", c.options.UserID).Msg("realtime read loop ended")
			return
		}

		select {
		case <-c.closed:
			return
		default:
		}

		c.service.handleCommand(c, cmd)
	}
}

func (c *realtimeClient) writer() {
	defer c.close()

	ticker := time.NewTicker(realtimePingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *realtimeClient) close() {
	c.once.Do(func() {
		close(c.closed)
		observability.WebsocketConnections().Dec()
		for _, roomID := range c.service.hub.drop(c) {
			c.service.announcePresence(roomID)
		}
		_ = c.conn.Close()
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/observability"
)

const sessionSendBufferSize = 32

// Delivery scopes carried by replicated events.
const (
	scopeUser         = "user"
	scopeConversation = "conversation"
	scopeBroadcast    = "broadcast"
)

// SessionOptions wraps metadata extracted during the websocket upgrade.
type SessionOptions struct {
	UserID        uint
	Name          string
	CorrelationID string
	Context       context.Context
}

// RealtimePublisher is the push side of the notification router. Services
// that produce side effects hold this interface; a nil publisher means the
// database mutation proceeds without any push.
type RealtimePublisher interface {
	EmitToUser(userID uint, event string, payload interface{})
	EmitToConversation(conversationID uint, event string, payload interface{}, skipUserID uint)
	Broadcast(event string, payload interface{})
}

// RealtimeService owns the websocket sessions and the room registry. Every
// session joins the room named after its own user id; viewing a conversation
// additionally joins that conversation's room for typing indicators.
// Delivery is at-most-once and best-effort: offline users miss events, slow
// consumers get dropped frames.
type RealtimeService interface {
	RealtimePublisher
	ServeConnection(conn *websocket.Conn, opts SessionOptions)
	Start(ctx context.Context)
}

type realtimeService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *sessionHub
	nodeID      string
}

// sessionHub tracks connected sessions and their room membership.
type sessionHub struct {
	mu       sync.RWMutex
	sessions map[*realtimeSession]struct{}
	rooms    map[string]map[*realtimeSession]struct{}
	log      zerolog.Logger
}

type realtimeSession struct {
	conn    *websocket.Conn
	send    chan dto.RealtimeFrame
	options SessionOptions
	service *realtimeService
	closed  chan struct{}
	once    sync.Once
}

// realtimeEnvelope replicates an event to peer nodes over redis/NATS. The
// source node id lets every node skip events it already delivered locally.
type realtimeEnvelope struct {
	Source     string          `json:"source"`
	Scope      string          `json:"scope"`
	Target     uint            `json:"target,omitempty"`
	SkipUserID uint            `json:"skip_user_id,omitempty"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SentAt     time.Time       `json:"sent_at"`
}

// NewRealtimeService constructs the notification router. Redis and NATS are
// both optional; with neither configured events stay node-local.
func NewRealtimeService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RealtimeService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":realtime"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".realtime"
	}

	hub := &sessionHub{
		sessions: make(map[*realtimeSession]struct{}),
		rooms:    make(map[string]map[*realtimeSession]struct{}),
		log:      logger.With().Str("component", "session_hub").Logger(),
	}

	return &realtimeService{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "realtime_service").Logger(),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts SessionOptions) {
	session := &realtimeSession{
		conn:    conn,
		send:    make(chan dto.RealtimeFrame, sessionSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(session)
	observability.WebsocketSessions().Inc()
	defer observability.WebsocketSessions().Dec()

	session.enqueue(dto.RealtimeFrame{Event: dto.EventConnected})

	go session.writer()
	session.reader()
}

func (s *realtimeService) EmitToUser(userID uint, event string, payload interface{}) {
	raw, ok := s.encodePayload(event, payload)
	if !ok {
		return
	}

	s.deliver(scopeUser, userID, 0, event, raw)
	s.replicate(realtimeEnvelope{Scope: scopeUser, Target: userID, Event: event, Payload: raw})
}

func (s *realtimeService) EmitToConversation(conversationID uint, event string, payload interface{}, skipUserID uint) {
	raw, ok := s.encodePayload(event, payload)
	if !ok {
		return
	}

	s.deliver(scopeConversation, conversationID, skipUserID, event, raw)
	s.replicate(realtimeEnvelope{Scope: scopeConversation, Target: conversationID, SkipUserID: skipUserID, Event: event, Payload: raw})
}

func (s *realtimeService) Broadcast(event string, payload interface{}) {
	raw, ok := s.encodePayload(event, payload)
	if !ok {
		return
	}

	s.deliver(scopeBroadcast, 0, 0, event, raw)
	s.replicate(realtimeEnvelope{Scope: scopeBroadcast, Event: event, Payload: raw})
}

func (s *realtimeService) encodePayload(event string, payload interface{}) (json.RawMessage, bool) {
	if payload == nil {
		return nil, true
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to encode realtime payload")
		return nil, false
	}
	return raw, true
}

func (s *realtimeService) deliver(scope string, target uint, skipUserID uint, event string, payload json.RawMessage) {
	frame := dto.RealtimeFrame{Event: event}
	if payload != nil {
		frame.Payload = payload
	}

	switch scope {
	case scopeUser:
		s.hub.emitToRoom(userRoom(target), frame, 0)
	case scopeConversation:
		s.hub.emitToRoom(conversationRoom(target), frame, skipUserID)
	case scopeBroadcast:
		s.hub.emitToAll(frame)
	}

	observability.RealtimeEvents().WithLabelValues(event).Inc()
}

func (s *realtimeService) replicate(envelope realtimeEnvelope) {
	if s.redis == nil && s.nats == nil {
		return
	}

	envelope.Source = s.nodeID
	envelope.SentAt = time.Now().UTC()

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode realtime envelope")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(context.Background(), s.redisStream, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to replicate realtime event via redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to replicate realtime event via nats")
		}
	}
}

func (s *realtimeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handleReplicatedEvent([]byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "localaid-realtime", func(msg *nats.Msg) {
		s.handleReplicatedEvent(msg.Data)
	})
	if err != nil {
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

func (s *realtimeService) handleReplicatedEvent(data []byte) {
	var envelope realtimeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid realtime envelope")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.deliver(envelope.Scope, envelope.Target, envelope.SkipUserID, envelope.Event, envelope.Payload)
}

func userRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func conversationRoom(conversationID uint) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

func (h *sessionHub) register(session *realtimeSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session] = struct{}{}
	h.joinLocked(session, userRoom(session.options.UserID))
	h.log.Debug().Uint("user_id", session.options.UserID).Msg("session connected")
}

func (h *sessionHub) unregister(session *realtimeSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, session)
	for room, members := range h.rooms {
		delete(members, session)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Uint("user_id", session.options.UserID).Msg("session disconnected")
}

func (h *sessionHub) join(session *realtimeSession, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(session, room)
}

func (h *sessionHub) joinLocked(session *realtimeSession, room string) {
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*realtimeSession]struct{})
	}
	h.rooms[room][session] = struct{}{}
}

func (h *sessionHub) leave(session *realtimeSession, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, session)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *sessionHub) emitToRoom(room string, frame dto.RealtimeFrame, skipUserID uint) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for session := range h.rooms[room] {
		if skipUserID != 0 && session.options.UserID == skipUserID {
			continue
		}
		session.enqueue(frame)
	}
}

func (h *sessionHub) emitToAll(frame dto.RealtimeFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for session := range h.sessions {
		session.enqueue(frame)
	}
}

func (s *realtimeSession) enqueue(frame dto.RealtimeFrame) {
	select {
	case s.send <- frame:
	default:
		s.service.logger.Warn().
			Uint("user_id", s.options.UserID).
			Str("event", frame.Event).
			Msg("dropping realtime event for slow client")
	}
}

func (s *realtimeSession) reader() {
	defer s.close()

	for {
		var frame dto.ClientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.service.logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}

		switch frame.Event {
		case dto.ActionJoinChat:
			if frame.ConversationID != 0 {
				s.service.hub.join(s, conversationRoom(frame.ConversationID))
			}
		case dto.ActionLeaveChat:
			if frame.ConversationID != 0 {
				s.service.hub.leave(s, conversationRoom(frame.ConversationID))
			}
		case dto.ActionTyping, dto.ActionStopTyping:
			if frame.ConversationID == 0 {
				continue
			}
			payload := dto.TypingPayload{ConversationID: frame.ConversationID, UserID: s.options.UserID}
			s.service.EmitToConversation(frame.ConversationID, frame.Event, payload, s.options.UserID)
		default:
			s.service.logger.Debug().Str("event", frame.Event).Msg("ignoring unknown client frame")
		}
	}
}

func (s *realtimeSession) writer() {
	defer s.close()

	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				s.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *realtimeSession) close() {
	s.once.Do(func() {
		close(s.closed)
		s.service.hub.unregister(s)
		_ = s.conn.Close()
	})
}

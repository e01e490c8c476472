package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oficios-app/marketplace-client/internal/auth"
	"github.com/oficios-app/marketplace-client/internal/config"
	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/devserver/middleware"
)

// Server is the in-memory marketplace backend used for local development and
// end-to-end tests. It speaks the same REST and socket contract the production
// backend does, minus persistence.
type Server struct {
	cfg      config.DevServerConfig
	store    *Store
	hub      *Hub
	tokens   *auth.TokenManager
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New builds the server, seeds the demo accounts and starts the hub loop.
func New(cfg config.DevServerConfig, logger *slog.Logger) (*Server, error) {
	store := NewStore()
	if _, err := store.SeedDemoUsers(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		hub:    NewHub(logger),
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		logger: logger.With("component", "devserver"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local-only server; origin filtering happens in CORS for REST.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	go s.hub.Run()
	return s, nil
}

// Store exposes the dataset for seeding in tests and the CLI.
func (s *Server) Store() *Store { return s.store }

// Hub exposes the socket hub, mainly for tests.
func (s *Server) Hub() *Hub { return s.hub }

// Tokens exposes the token manager so callers can mint test credentials.
func (s *Server) Tokens() *auth.TokenManager { return s.tokens }

// Router assembles the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: s.cfg.RequestsPerSecond,
		BurstSize:         s.cfg.BurstSize,
		CleanupInterval:   middleware.DefaultRateLimiterConfig().CleanupInterval,
		TTL:               middleware.DefaultRateLimiterConfig().TTL,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.RecoveryLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(limiter.Middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTMiddleware(s.tokens))

			r.Route("/trabajos", func(r chi.Router) {
				r.Get("/", s.handleListTrabajos)
				r.Post("/", s.handleCreateTrabajo)
				r.Get("/{id}", s.handleGetTrabajo)

				// Client-side lifecycle actions.
				r.Patch("/{id}/aceptar-cotizacion", s.trabajoAction(domain.ActionAcceptQuote))
				r.Patch("/{id}/rechazar-cotizacion", s.trabajoAction(domain.ActionRejectQuote))
				r.Patch("/{id}/cancelar", s.handleCancelTrabajo)
				r.Patch("/{id}/reportar", s.handleReportTrabajo)

				// Technician-side lifecycle actions.
				r.Patch("/{id}/necesita-visita", s.trabajoAction(domain.ActionScheduleVisit))
				r.Patch("/{id}/cotizar", s.handleQuoteTrabajo)
				r.Patch("/{id}/iniciar", s.trabajoAction(domain.ActionStart))
				r.Patch("/{id}/completar", s.trabajoAction(domain.ActionComplete))
				r.Patch("/{id}/rechazar", s.trabajoAction(domain.ActionReject))
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/conversations", s.handleListConversations)
				r.Post("/conversations", s.handleCreateConversation)
				r.Get("/conversations/{id}", s.handleGetConversation)
				r.Get("/conversations/{id}/messages", s.handleListMessages)
				r.Post("/messages", s.handleSendMessage)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.hub.ClientCount(),
	})
}

// handleWebSocket upgrades the connection. The token travels as a query
// parameter because browser websocket clients cannot set headers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token query parameter is required")
		return
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s, conn, claims.UserID, claims.Role)
	s.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// dispatchFrame routes one inbound socket frame from a connection.
func (s *Server) dispatchFrame(c *wsClient, frame domain.Frame) error {
	switch frame.Type {
	case domain.EventJoinChat:
		var p domain.JoinChatPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		if err := s.requireParticipant(p.ChatID, c.UserID); err != nil {
			return err
		}
		s.hub.joinRoom(c, p.ChatID)
		return nil

	case domain.EventLeaveChat:
		var p domain.JoinChatPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		s.hub.leaveRoom(c, p.ChatID)
		return nil

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		if err := s.requireParticipant(p.ChatID, c.UserID); err != nil {
			return err
		}
		msg, err := s.store.AppendMessage(p.ChatID, c.UserID, p.Texto)
		if err != nil {
			return err
		}
		s.pushMessage(*msg)
		return nil

	case domain.EventTyping:
		var p domain.TypingPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		if err := s.requireParticipant(p.ChatID, c.UserID); err != nil {
			return err
		}
		out, err := domain.NewFrame(domain.EventTypingIndicator, domain.TypingIndicatorPayload{
			ChatID: p.ChatID,
			UserID: c.UserID,
		})
		if err != nil {
			return err
		}
		s.hub.BroadcastToRoom(p.ChatID, out, c)
		return nil

	case domain.EventReadMessages:
		var p domain.ReadMessagesPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		if err := s.requireParticipant(p.ChatID, c.UserID); err != nil {
			return err
		}
		changed := s.store.MarkRead(p.ChatID, p.MessageIDs)
		if len(changed) == 0 {
			return nil
		}
		out, err := domain.NewFrame(domain.EventMessagesRead, domain.MessagesReadPayload{
			ChatID:     p.ChatID,
			MessageIDs: changed,
			ReadBy:     c.UserID,
		})
		if err != nil {
			return err
		}
		s.sendToCounterparty(p.ChatID, c.UserID, out)
		return nil

	case domain.EventTrabajoCreated:
		var p domain.TrabajoCreatedPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		s.hub.SendToUser(p.To, frame)
		return nil

	case domain.EventTrabajoStateChanged:
		var p domain.TrabajoStateChangedPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return err
		}
		s.hub.SendToUser(p.To, frame)
		return nil

	default:
		c.logger.Debug("received unknown frame type", "type", frame.Type)
		return nil
	}
}

// pushMessage delivers a stored message to both participants. Delivery goes
// per-user rather than per-room so conversation previews stay fresh even for
// users not currently focused on the chat.
func (s *Server) pushMessage(msg domain.Message) {
	frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{
		ChatID:  msg.ChatID,
		Message: msg,
	})
	if err != nil {
		s.logger.Error("failed to encode message frame", "error", err)
		return
	}

	cliente, tecnico, err := s.store.Participants(msg.ChatID)
	if err != nil {
		return
	}
	s.hub.SendToUser(cliente, frame)
	s.hub.SendToUser(tecnico, frame)
}

func (s *Server) sendToCounterparty(chatID, from uuid.UUID, frame domain.Frame) {
	cliente, tecnico, err := s.store.Participants(chatID)
	if err != nil {
		return
	}
	if from == cliente {
		s.hub.SendToUser(tecnico, frame)
	} else {
		s.hub.SendToUser(cliente, frame)
	}
}

func (s *Server) requireParticipant(chatID, userID uuid.UUID) error {
	cliente, tecnico, err := s.store.Participants(chatID)
	if err != nil {
		return err
	}
	if userID != cliente && userID != tecnico {
		return apperrors.NewAuthError("not a participant in this conversation")
	}
	return nil
}

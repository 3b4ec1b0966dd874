package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat-server/internal/proto"
	"github.com/roomchat/roomchat-server/internal/store"
)

// ChatHandlers exposes the message log over REST, mirroring the socket
// history replay for clients that want to fetch history out of band.
type ChatHandlers struct {
	store        store.MessageStore
	historyLimit int
	log          *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.MessageStore, historyLimit int, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store:        st,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// RoomHistory returns the message history for a room, using the same
// identity-aware query as the socket join handler so private rooms resolve
// for their participants.
// GET /api/chat/:room
func (h *ChatHandlers) RoomHistory(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString(ContextKeyUsername)

	msgs, err := h.store.RoomHistory(c.Request.Context(), room, username, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to load room history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	payload := make([]proto.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		entry := proto.MessagePayload{
			FromUser: m.Sender,
			ToUser:   m.Recipient,
			Message:  m.Body,
			DateSent: m.SentAt,
		}
		if m.Recipient == "" {
			entry.Room = m.Room
		}
		payload = append(payload, entry)
	}

	c.JSON(http.StatusOK, payload)
}

// PostMessageRequest represents the REST message append body.
type PostMessageRequest struct {
	Room    string `json:"room" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// PostMessage appends a public message to the log without fanning it out to
// live subscribers; connected clients see it on their next history replay.
// POST /api/chat
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid post message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	username := c.GetString(ContextKeyUsername)
	stored, err := h.store.AppendMessage(c.Request.Context(), &store.Message{
		Room:   req.Room,
		Sender: username,
		Body:   req.Message,
	})
	if err != nil {
		h.log.Error().Err(err).Str("room", req.Room).Msg("failed to append message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, proto.MessagePayload{
		FromUser: stored.Sender,
		Room:     stored.Room,
		Message:  stored.Body,
		DateSent: stored.SentAt,
	})
}

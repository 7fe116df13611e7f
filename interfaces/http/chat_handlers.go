package httpiface

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (r *Router) bindChatRequest(c *gin.Context) (chat.ChatRequest, bool) {
	var req chat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind chat request")
		c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: "Invalid request format"})
		return req, false
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if req.Provider == "" {
		req.Provider = r.defaultProvider
	}
	return req, true
}

// isRequestError reports errors the caller caused, which are rejected
// before any upstream work.
func isRequestError(err error) bool {
	return errors.Is(err, chat.ErrInvalidProvider) ||
		errors.Is(err, chat.ErrPromptEmpty) ||
		errors.Is(err, chat.ErrPromptTooLong)
}

func (r *Router) chat(c *gin.Context) {
	req, ok := r.bindChatRequest(c)
	if !ok {
		return
	}

	result, err := r.service.ChatOnce(c.Request.Context(), req.Prompt, req.Provider)
	if err != nil {
		if isRequestError(err) {
			c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: err.Error()})
			return
		}
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Error("Failed to process chat request")
		c.JSON(http.StatusInternalServerError, chat.ErrorResponse{Error: "Failed to process request"})
		return
	}

	if result.Fallback {
		observability.RecordFallback(req.Provider, result.Reason)
	}

	c.JSON(http.StatusOK, result)
}

// chatStream relays the event sequence as "data: <json>\n\n" frames. The
// status is always 200; failures arrive as an error frame.
func (r *Router) chatStream(c *gin.Context) {
	req, ok := r.bindChatRequest(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	err := r.service.ChatStream(c.Request.Context(), req.Prompt, req.Provider, func(event chat.StreamEvent) error {
		if err := writeFrame(c.Writer, event); err != nil {
			return err
		}
		observability.RecordStreamEvent(req.Provider, event.Type.String())
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"provider":   req.Provider,
		}).Info("Client left chat stream")
	}
}

func writeFrame(w gin.ResponseWriter, event chat.StreamEvent) error {
	data, err := json.Marshal(event.Frame())
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	if _, err := w.Write(frame); err != nil {
		return err
	}
	w.Flush()
	return nil
}

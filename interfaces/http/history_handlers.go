package httpiface

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxHistoryLimit = 500

// listRequests returns the most recent chat records
func (r *Router) listRequests(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: "Invalid limit parameter"})
		return
	}
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := r.chatRepo.FindRecent(c.Request.Context(), limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list chat records")
		c.JSON(http.StatusInternalServerError, chat.ErrorResponse{Error: "Failed to retrieve chat history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (r *Router) getRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: "Invalid request ID format"})
		return
	}

	record, err := r.chatRepo.FindByID(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, chat.ErrorResponse{Error: "Request not found"})
			return
		}
		logrus.WithError(err).Errorf("Failed to get chat record %s", requestID)
		c.JSON(http.StatusInternalServerError, chat.ErrorResponse{Error: "Failed to retrieve request"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// requestStats aggregates chat records per provider
func (r *Router) requestStats(c *gin.Context) {
	stats, err := r.chatRepo.Stats(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate chat records")
		c.JSON(http.StatusInternalServerError, chat.ErrorResponse{Error: "Failed to retrieve stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": stats})
}

package httpiface

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/station"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func stationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: "Invalid station ID"})
		return 0, false
	}
	return id, true
}

// catalogError writes 404 for unknown stations and 500 for anything else.
func catalogError(c *gin.Context, err error, action string) {
	if errors.Is(err, station.ErrNotFound) {
		c.JSON(http.StatusNotFound, chat.ErrorResponse{Error: "Station not found"})
		return
	}
	logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Errorf("Failed to %s", action)
	c.JSON(http.StatusInternalServerError, chat.ErrorResponse{Error: "Error " + action})
}

func (r *Router) listStations(c *gin.Context) {
	stations, err := r.catalog.List(c.Request.Context())
	if err != nil {
		catalogError(c, err, "listing stations")
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (r *Router) searchStations(c *gin.Context) {
	var filter station.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, chat.ErrorResponse{Error: "Invalid search parameters"})
		return
	}
	stations, err := r.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		catalogError(c, err, "searching stations")
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (r *Router) getStation(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}
	st, err := r.catalog.Get(c.Request.Context(), id)
	if err != nil {
		catalogError(c, err, "getting station")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) createStation(c *gin.Context) {
	var in station.NewStation
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	created, err := r.catalog.Create(c.Request.Context(), in)
	if err != nil {
		catalogError(c, err, "creating station")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (r *Router) updateStation(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}
	var patch station.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	updated, err := r.catalog.Update(c.Request.Context(), id, patch)
	if err != nil {
		catalogError(c, err, "updating station")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (r *Router) deleteStation(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}
	if err := r.catalog.Delete(c.Request.Context(), id); err != nil {
		catalogError(c, err, "deleting station")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Station deleted successfully"})
}

func (r *Router) genres(c *gin.Context) {
	r.facet(c, r.catalog.Genres, "listing genres")
}

func (r *Router) countries(c *gin.Context) {
	r.facet(c, r.catalog.Countries, "listing countries")
}

func (r *Router) languages(c *gin.Context) {
	r.facet(c, r.catalog.Languages, "listing languages")
}

func (r *Router) facet(c *gin.Context, values func(ctx context.Context) ([]string, error), action string) {
	list, err := values(c.Request.Context())
	if err != nil {
		catalogError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Package api exposes the water, news and data-item endpoints over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/bbernstein/waterlab/backend-go/internal/items"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/bbernstein/waterlab/backend-go/internal/station"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	stations models.StationResolver
	news     models.NewsProvider
	items    models.ItemStore
}

func NewHandler(stations models.StationResolver, news models.NewsProvider, itemStore models.ItemStore) *Handler {
	return &Handler{
		stations: stations,
		news:     news,
		items:    itemStore,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) News(c *gin.Context) {
	articles, err := h.news.Latest(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Unable to fetch water news", err))
		return
	}
	c.JSON(http.StatusOK, articles)
}

func (h *Handler) ListStations(c *gin.Context) {
	stations, err := h.stations.ListStations(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Failed to fetch station list", err))
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (h *Handler) GetStation(c *gin.Context) {
	id := c.Param("id")

	data, err := h.stations.Resolve(c.Request.Context(), id)
	if errors.Is(err, station.ErrStationNotFound) {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "Station not found in any data source", nil))
		return
	}
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Failed to fetch station data", err))
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) ListItems(c *gin.Context) {
	list, err := h.items.List(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Failed to fetch data", err))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, itemError(err, "Failed to fetch item"))
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) CreateItem(c *gin.Context) {
	name, description, ok := itemInput(c)
	if !ok {
		return
	}

	item, err := h.items.Create(c.Request.Context(), name, description)
	if err != nil {
		abortWithError(c, itemError(err, "Failed to create item"))
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	name, description, ok := itemInput(c)
	if !ok {
		return
	}

	item, err := h.items.Update(c.Request.Context(), id, name, description)
	if err != nil {
		abortWithError(c, itemError(err, "Failed to update item"))
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, itemError(err, "Failed to delete item"))
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Item deleted successfully"})
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := items.ValidateID(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error(), nil))
		return 0, false
	}
	return id, true
}

// itemInput decodes and validates a create or update body. A body that is not a JSON
// object is validated as if it were empty.
func itemInput(c *gin.Context) (string, string, bool) {
	var in models.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Debug().Err(err).Msg("Ignoring undecodable item body")
		in = models.ItemInput{}
	}

	name, description, err := items.ValidateInput(in.Name, in.Description)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, err.Error(), nil))
		return "", "", false
	}
	return name, description, true
}

func itemError(err error, internalMessage string) *HTTPError {
	if errors.Is(err, items.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "Item not found", nil)
	}
	return NewHTTPError(http.StatusInternalServerError, internalMessage, err)
}

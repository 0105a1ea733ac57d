package handlers

import (
	"errors"
	"net/http"

	"evacconsole/internal/graphedit"
	"evacconsole/internal/service"
	"evacconsole/internal/transport"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errNoSession       = "no admin token configured; sign in first"
	errInvalidBodyPref = "invalid body: "
	errValidation      = "validation failed"
	errInternal        = "internal error"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// storeError maps a store failure onto a response. Local rejections are 400s;
// upstream failures carry the store's error text, with 401 for a rejected
// token and 502 for everything else.
func (h *Handler) storeError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var verrs graphedit.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation, "fields": verrs})
		return
	}

	switch {
	case errors.Is(err, service.ErrFloorRequired),
		errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrImageRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrTokenRequired),
		errors.Is(err, graphedit.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var opErr *service.OpError
	if errors.As(err, &opErr) {
		code := http.StatusBadGateway
		if opErr.Kind == transport.KindAuth {
			code = http.StatusUnauthorized
		}
		if h.log != nil {
			fields := append([]interface{}{"op", opErr.Op, "upstream_status", opErr.Status, "err", opErr.Message}, kv...)
			h.log.Warnw(logKey, fields...)
		}
		c.JSON(code, gin.H{
			"error":           opErr.Message,
			"kind":            opErr.Kind,
			"upstream_status": opErr.Status,
		})
		return
	}

	h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled, true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

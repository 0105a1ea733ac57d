package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evacconsole/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeInvalid = "'from' must be <= 'to'"
	errPageInvalid  = "'page' and 'limit' must be positive integers"
	errThreshold    = "'threshold' must be a number between 0 and 1"

	// defaultAlertThreshold matches the default edge fire threshold.
	defaultAlertThreshold = 0.7

	timeLayout     = time.RFC3339
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// RecordsResponse is a records page plus the image candidates of each record, keyed by record id.
type RecordsResponse struct {
	models.RecordPage
	Images map[string][]string `json:"images,omitempty"`
}

func newRecordsResponse(page models.RecordPage) RecordsResponse {
	resp := RecordsResponse{RecordPage: page}
	for _, r := range page.Records {
		if src := models.RecordImageSources(r); len(src) > 0 {
			if resp.Images == nil {
				resp.Images = make(map[string][]string, len(page.Records))
			}
			resp.Images[r.ID] = src
		}
	}
	return resp
}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List records
// @Description  floorId is mandatory. Changing any filter restarts at page 1. If 'to' is date-only it covers the whole day.
// @Tags         records
// @Produce      json
// @Param        floorId   query  string  true   "Floor ID"
// @Param        cameraId  query  string  false  "Camera ID"
// @Param        from      query  string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to        query  string  false  "End of range; date-only is end of day"  example(2025-08-31)
// @Param        page      query  int     false  "Page, from 1"
// @Param        limit     query  int     false  "Page size"
// @Success      200  {object}  RecordsResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/records [get]
func (h *Handler) listRecords(c *gin.Context) {
	f, msg := parseRecordFilter(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	page, err := h.services.Records.List(c.Request.Context(), f)
	if err != nil {
		h.storeError(c, "records_list_failed", err, "floor_id", f.FloorID)
		return
	}
	c.JSON(http.StatusOK, newRecordsResponse(page))
}

// @Summary      Next records page
// @Tags         records
// @Produce      json
// @Success      200  {object}  RecordsResponse
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/records/next [get]
func (h *Handler) nextRecords(c *gin.Context) {
	page, err := h.services.Records.NextPage(c.Request.Context())
	if err != nil {
		h.storeError(c, "records_next_failed", err)
		return
	}
	c.JSON(http.StatusOK, newRecordsResponse(page))
}

// @Summary      Previous records page
// @Tags         records
// @Produce      json
// @Success      200  {object}  RecordsResponse
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/records/prev [get]
func (h *Handler) prevRecords(c *gin.Context) {
	page, err := h.services.Records.PrevPage(c.Request.Context())
	if err != nil {
		h.storeError(c, "records_prev_failed", err)
		return
	}
	c.JSON(http.StatusOK, newRecordsResponse(page))
}

// parseRecordFilter reads the query. The floor requirement is left to the
// store so it reports the same error everywhere.
func parseRecordFilter(c *gin.Context) (models.RecordFilter, string) {
	f := models.RecordFilter{
		FloorID:  strings.TrimSpace(c.Query("floorId")),
		CameraID: strings.TrimSpace(c.Query("cameraId")),
	}
	var err error
	if qs := c.Query("from"); qs != "" {
		if f.From, err = parseQueryTime(qs); err != nil {
			return f, errFromInvalid
		}
	}
	if qs := c.Query("to"); qs != "" {
		if f.To, err = parseQueryTime(qs); err != nil {
			return f, errToInvalid
		}
		if isDateOnly(qs) {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRangeInvalid
	}
	if f.Page, err = positiveInt(c.Query("page")); err != nil {
		return f, errPageInvalid
	}
	if f.Limit, err = positiveInt(c.Query("limit")); err != nil {
		return f, errPageInvalid
	}
	return f, ""
}

func positiveInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return v, nil
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

// @Summary      Fire alerts
// @Description  Loaded records whose fire or smoke probability reaches the threshold. Does not contact the backend.
// @Tags         records
// @Produce      json
// @Param        threshold  query  number  false  "Probability from 0 to 1"  default(0.7)
// @Success      200  {array}   models.Record
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/records/alerts [get]
func (h *Handler) fireAlerts(c *gin.Context) {
	threshold := defaultAlertThreshold
	if qs := c.Query("threshold"); qs != "" {
		v, err := strconv.ParseFloat(qs, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errThreshold})
			return
		}
		threshold = v
	}
	alerts := h.services.Records.FireAlerts(threshold)
	if alerts == nil {
		alerts = []models.Record{}
	}
	c.JSON(http.StatusOK, alerts)
}

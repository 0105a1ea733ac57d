package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"evacconsole/internal/graphedit"
	"evacconsole/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	maxImageBytes = 16 << 20 // 16 MB

	errDraftMissing = "missing 'draft' form field"
	errDraftInvalid = "invalid 'draft' JSON: "
	errImageRead    = "failed to read 'image' upload"
	errIDMismatch   = "floor id cannot be changed"
	errNotCached    = "floor is not in the loaded list"
)

// statusRequest is the body of every status-change endpoint.
type statusRequest struct {
	Status string `json:"status" binding:"required" example:"active"`
}

// ValidateDraftResponse is returned by the draft validation endpoint.
type ValidateDraftResponse struct {
	Valid  bool                        `json:"valid"`
	Errors graphedit.ValidationErrors `json:"errors,omitempty"`
}

// @Summary      List floors
// @Description  Full resync: the cached collection is replaced by the backend's list. status=active returns only active floors.
// @Tags         floors
// @Produce      json
// @Param        status  query  string  false  "Only 'active' is supported"
// @Success      200  {array}   models.Floor
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors [get]
func (h *Handler) listFloors(c *gin.Context) {
	floors, err := h.services.Floors.List(c.Request.Context())
	if err != nil {
		h.storeError(c, "floors_list_failed", err)
		return
	}
	if c.Query("status") == string(models.FloorActive) {
		floors = h.services.Floors.ActiveFloors()
	}
	if floors == nil {
		floors = []models.Floor{}
	}
	c.JSON(http.StatusOK, floors)
}

// @Summary      Get floor
// @Description  cached=true answers from the loaded list without contacting the backend.
// @Tags         floors
// @Produce      json
// @Param        id      path      string  true   "Floor ID"
// @Param        cached  query     bool    false  "Read from the loaded list"
// @Success      200  {object}  models.Floor
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id} [get]
func (h *Handler) getFloor(c *gin.Context) {
	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		f, ok := h.services.Floors.ByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errNotCached})
			return
		}
		c.JSON(http.StatusOK, f)
		return
	}
	f, err := h.services.Floors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "floor_get_failed", err, "floor_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, f)
}

// FloorDraftResponse is an existing floor loaded into the editor.
type FloorDraftResponse struct {
	Draft        *graphedit.Draft `json:"draft"`
	Integrity    []string         `json:"integrity,omitempty"`
	ImageSources []string         `json:"imageSources,omitempty"`
}

// @Summary      Edit floor
// @Description  Loads the floor into an editor draft, with dangling-reference warnings and map image candidates.
// @Tags         floors
// @Produce      json
// @Param        id   path      string  true  "Floor ID"
// @Success      200  {object}  FloorDraftResponse
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id}/draft [get]
func (h *Handler) floorDraft(c *gin.Context) {
	f, err := h.services.Floors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "floor_draft_failed", err, "floor_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, FloorDraftResponse{
		Draft:        graphedit.FromFloor(f),
		Integrity:    f.CheckIntegrity(),
		ImageSources: models.FloorImageSources(f),
	})
}

// @Summary      Select floor
// @Description  Makes the floor current and loads its detail.
// @Tags         floors
// @Produce      json
// @Param        id   path      string  true  "Floor ID"
// @Success      200  {object}  models.Floor
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id}/select [post]
func (h *Handler) selectFloor(c *gin.Context) {
	id := c.Param("id")
	h.services.Floors.Select(id)
	f, err := h.services.Floors.Get(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "floor_select_failed", err, "floor_id", id)
		return
	}
	c.JSON(http.StatusOK, f)
}

// @Summary      Create floor
// @Description  multipart/form-data with a "draft" JSON field (the editor draft) and an "image" file. widthMeters and heightMeters describe the plan.
// @Tags         floors
// @Accept       mpfd
// @Produce      json
// @Param        draft         formData  string  true   "Draft JSON"
// @Param        image         formData  file    true   "Floor plan image"
// @Param        widthMeters   formData  number  false  "Plan width in meters"
// @Param        heightMeters  formData  number  false  "Plan height in meters"
// @Success      201  {object}  models.Floor
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors [post]
func (h *Handler) createFloor(c *gin.Context) {
	d, ok := h.readDraft(c)
	if !ok {
		return
	}
	f, err := h.services.Floors.Submit(c.Request.Context(), d, true)
	if err != nil {
		h.storeError(c, "floor_create_failed", err, "floor_id", d.ID)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// @Summary      Update floor
// @Description  Accepts the draft as JSON, or as multipart like create when the plan image changes.
// @Tags         floors
// @Accept       json,mpfd
// @Produce      json
// @Param        id   path      string  true  "Floor ID"
// @Success      200  {object}  models.Floor
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id} [put]
func (h *Handler) updateFloor(c *gin.Context) {
	d, ok := h.readDraft(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if d.ID != "" && strings.TrimSpace(d.ID) != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": errIDMismatch})
		return
	}
	d.ID = id

	f, err := h.services.Floors.Submit(c.Request.Context(), d, false)
	if err != nil {
		h.storeError(c, "floor_update_failed", err, "floor_id", id)
		return
	}
	c.JSON(http.StatusOK, f)
}

// @Summary      Validate draft
// @Description  Runs the authoring checks without contacting the backend.
// @Tags         floors
// @Accept       json
// @Produce      json
// @Param        creating  query     bool  false  "Also require a plan image"
// @Success      200  {object}  ValidateDraftResponse
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/floors/validate [post]
func (h *Handler) validateDraft(c *gin.Context) {
	var d graphedit.Draft
	if !h.bindJSONOrBadRequest(c, &d) {
		return
	}
	var errs graphedit.ValidationErrors
	if creating, _ := strconv.ParseBool(c.Query("creating")); creating {
		errs = d.ValidateForCreate()
	} else {
		errs = d.Validate()
	}
	c.JSON(http.StatusOK, ValidateDraftResponse{Valid: errs == nil, Errors: errs})
}

// @Summary      Delete floor
// @Tags         floors
// @Produce      json
// @Param        id   path      string  true  "Floor ID"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id} [delete]
func (h *Handler) deleteFloor(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Floors.Delete(c.Request.Context(), id); err != nil {
		h.storeError(c, "floor_delete_failed", err, "floor_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Set floor status
// @Tags         floors
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Floor ID"
// @Param        body  body  statusRequest  true  "active | disabled | maintenance"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id}/status [patch]
func (h *Handler) setFloorStatus(c *gin.Context) {
	var req statusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	id := c.Param("id")
	if err := h.services.Floors.SetStatus(c.Request.Context(), id, models.FloorStatus(req.Status)); err != nil {
		h.storeError(c, "floor_status_failed", err, "floor_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Set camera status
// @Tags         floors
// @Accept       json
// @Produce      json
// @Param        id        path  string         true  "Floor ID"
// @Param        cameraId  path  string         true  "Camera ID"
// @Param        body      body  statusRequest  true  "New status"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id}/cameras/{cameraId}/status [patch]
func (h *Handler) setCameraStatus(c *gin.Context) {
	var req statusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	id, cameraID := c.Param("id"), c.Param("cameraId")
	if err := h.services.Floors.SetCameraStatus(c.Request.Context(), id, cameraID, req.Status); err != nil {
		h.storeError(c, "camera_status_failed", err, "floor_id", id, "camera_id", cameraID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Set screen status
// @Tags         floors
// @Accept       json
// @Produce      json
// @Param        id        path  string         true  "Floor ID"
// @Param        screenId  path  string         true  "Screen ID"
// @Param        body      body  statusRequest  true  "New status"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/floors/{id}/screens/{screenId}/status [patch]
func (h *Handler) setScreenStatus(c *gin.Context) {
	var req statusRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	id, screenID := c.Param("id"), c.Param("screenId")
	if err := h.services.Floors.SetScreenStatus(c.Request.Context(), id, screenID, req.Status); err != nil {
		h.storeError(c, "screen_status_failed", err, "floor_id", id, "screen_id", screenID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// readDraft reads the editor draft from JSON or from a multipart form with
// an optional plan image. It writes the 400 itself and reports false on failure.
func (h *Handler) readDraft(c *gin.Context) (*graphedit.Draft, bool) {
	d := graphedit.New()
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if !h.bindJSONOrBadRequest(c, d) {
			return nil, false
		}
		d.Image = nil
		return d, true
	}

	raw := c.PostForm("draft")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errDraftMissing})
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw), d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errDraftInvalid + err.Error()})
		return nil, false
	}

	img, err := readImage(c)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errImageRead, "floor_image_read_failed", err)
		return nil, false
	}
	d.Image = img
	return d, true
}

func readImage(c *gin.Context) (*graphedit.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > maxImageBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", fh.Size, maxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return nil, err
	}

	img := &graphedit.ImageUpload{Filename: fh.Filename, Content: content}
	img.WidthMeters, _ = strconv.ParseFloat(c.PostForm("widthMeters"), 64)
	img.HeightMeters, _ = strconv.ParseFloat(c.PostForm("heightMeters"), 64)
	return img, nil
}

package handlers

import (
	"net/http"

	"evacconsole/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errLayoutUnavailable = "layout preferences are not available"
	errLoadSidebar       = "failed to load sidebar state"
	errSaveSidebar       = "failed to save sidebar state"
)

// SignInRequest is the body of PUT /session.
type SignInRequest struct {
	Token string `json:"token" binding:"required" example:"admin-secret"`
	// BaseURL switches the backend; empty keeps the current one.
	BaseURL string `json:"base_url,omitempty" example:"http://localhost:3000"`
}

type sidebarRequest struct {
	Collapsed *bool `json:"collapsed" binding:"required"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Console state
// @Description  Snapshot of every store: collections, current pointers, loading flags and last errors.
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.ConsoleSnapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Session
// @Description  Whether an admin token is set, the backend base URL and the token expiry when it is a JWT.
// @Tags         session
// @Produce      json
// @Success      200  {object}  service.SystemSnapshot
// @Router       /session [get]
func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.System.Snapshot())
}

// @Summary      Sign in
// @Description  Stores the admin token (and base URL) and checks it against the backend.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      SignInRequest  true  "Credentials"
// @Success      200   {object}  service.SystemSnapshot
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /session [put]
func (h *Handler) signIn(c *gin.Context) {
	var req SignInRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.services.System.Login(c.Request.Context(), req.Token, req.BaseURL); err != nil {
		h.storeError(c, "session_sign_in_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.System.Snapshot())
}

// @Summary      Sign out
// @Description  Forgets the admin token; the base URL is kept.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /session [delete]
func (h *Handler) signOut(c *gin.Context) {
	if err := h.services.System.Logout(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, "session_sign_out_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Sidebar state
// @Tags         ui
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      500  {object}  map[string]string
// @Router       /ui/sidebar [get]
func (h *Handler) getSidebar(c *gin.Context) {
	if h.layout == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errLayoutUnavailable})
		return
	}
	collapsed, err := h.layout.SidebarCollapsed(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadSidebar, "sidebar_load_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collapsed": collapsed})
}

// @Summary      Collapse or expand the sidebar
// @Tags         ui
// @Accept       json
// @Produce      json
// @Param        body  body      sidebarRequest  true  "{\"collapsed\": true}"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /ui/sidebar [put]
func (h *Handler) setSidebar(c *gin.Context) {
	if h.layout == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errLayoutUnavailable})
		return
	}
	var req sidebarRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.layout.SetSidebarCollapsed(c.Request.Context(), *req.Collapsed); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSaveSidebar, "sidebar_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collapsed": *req.Collapsed})
}

// @Summary      Backend health
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.Health
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/system/health [get]
func (h *Handler) systemHealth(c *gin.Context) {
	health, err := h.services.System.CheckHealth(c.Request.Context())
	if err != nil {
		h.storeError(c, "system_health_failed", err)
		return
	}
	if !health.Healthy() {
		h.log.Warnw("backend_unhealthy", "database", health.Database.Status)
	}
	c.JSON(http.StatusOK, health)
}

// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.Settings
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/settings [get]
func (h *Handler) getSettings(c *gin.Context) {
	s, err := h.services.Settings.Fetch(c.Request.Context())
	if err != nil {
		h.storeError(c, "settings_fetch_failed", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Update settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      models.Settings  true  "Cloud settings"
// @Success      200   {object}  models.Settings
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/settings [put]
func (h *Handler) updateSettings(c *gin.Context) {
	var req models.Settings
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	s, err := h.services.Settings.Update(c.Request.Context(), req)
	if err != nil {
		h.storeError(c, "settings_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Trigger cloud sync
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.SyncReport
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/settings/sync [post]
func (h *Handler) triggerSync(c *gin.Context) {
	report, err := h.services.Settings.TriggerSync(c.Request.Context())
	if err != nil {
		h.storeError(c, "settings_sync_failed", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

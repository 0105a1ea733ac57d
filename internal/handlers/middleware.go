package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// requireToken stops API calls until an admin token is configured, so the UI
// can send the operator to the sign-in screen instead of forwarding requests
// the backend will reject.
func (h *Handler) requireToken(c *gin.Context) {
	if h.services.System == nil || !h.services.System.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": errNoSession,
		})
		return
	}
	c.Next()
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/verifysvc/domain"
)

// RouteHandlers exposes the guard's route policy for operators.
type RouteHandlers struct{ E domain.RouteEnforcer }

func (h *RouteHandlers) List(c *gin.Context) {
	policies, err := h.E.GetPolicy()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	routes := make([]gin.H, 0, len(policies))
	for _, p := range policies {
		if len(p) < 3 {
			continue
		}
		routes = append(routes, gin.H{"stage": p[0], "path": p[1], "methods": p[2]})
	}
	c.JSON(http.StatusOK, gin.H{"data": routes})
}

package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/anonto42/concordance/backend/internal/feedcache"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// OperatorTokenHeader carries the shared secret for operational endpoints
const OperatorTokenHeader = "X-Operator-Token"

// OpsHandler serves operator actions
type OpsHandler struct {
	feedCache *feedcache.Cache
	token     string
}

// NewOpsHandler creates a new OpsHandler. An empty token disables every operator action.
func NewOpsHandler(cache *feedcache.Cache, token string) *OpsHandler {
	return &OpsHandler{feedCache: cache, token: token}
}

func (h *OpsHandler) RegisterOpsRoutes(g *echo.Group) {
	g.POST("/cache/flush/", h.FlushFeedCache, h.requireOperator)
}

func (h *OpsHandler) requireOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		given := c.Request().Header.Get(OperatorTokenHeader)
		if h.token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) != 1 {
			return echo.NewHTTPError(http.StatusForbidden, "Operator token required")
		}
		return next(c)
	}
}

// FlushFeedCache drops every cached feed page
func (h *OpsHandler) FlushFeedCache(c echo.Context) error {
	n := h.feedCache.Len()
	h.feedCache.Flush()
	logrus.WithField("pages", n).Info("Feed cache flushed by operator")
	return c.JSON(http.StatusOK, echo.Map{"flushed": n})
}

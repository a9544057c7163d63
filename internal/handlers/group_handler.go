package handlers

import (
	"net/http"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// GroupHandler exposes groups read-only
type GroupHandler struct {
	groupRepository repositories.GroupRepository
	pageSize        int
}

func NewGroupHandler(groupRepo repositories.GroupRepository, pageSize int) *GroupHandler {
	return &GroupHandler{groupRepository: groupRepo, pageSize: pageSize}
}

func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.GET("/groups/", h.GetGroups)
	g.GET("/groups/:id/", h.GetGroup)
}

func (h *GroupHandler) GetGroups(c echo.Context) error {
	page, err := pagination.Paginate(c.Request().Context(), h.groupRepository.ListGroups(), c.QueryParam("page"), h.pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, newPageResponse(c, page, func(g models.Group) models.Group { return g }))
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	id, err := parseID(c, "id", "Group")
	if err != nil {
		return err
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "Group")
	}
	return c.JSON(http.StatusOK, group)
}

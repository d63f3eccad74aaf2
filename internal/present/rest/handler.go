package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
	"github.com/totegamma/taxonomy-sync/internal/present/rest/presenter"
	"github.com/totegamma/taxonomy-sync/internal/service"
	"github.com/totegamma/taxonomy-sync/internal/usecase"
)

type Handler struct {
	node        *usecase.NodeUsecase
	association *usecase.AssociationUsecase
	reorder     *usecase.ReorderUsecase
	connection  *usecase.ConnectionUsecase
	hub         *service.Hub
}

func NewHandler(
	node *usecase.NodeUsecase,
	association *usecase.AssociationUsecase,
	reorder *usecase.ReorderUsecase,
	connection *usecase.ConnectionUsecase,
	hub *service.Hub,
) *Handler {
	return &Handler{
		node:        node,
		association: association,
		reorder:     reorder,
		connection:  connection,
		hub:         hub,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/nodes", h.handleListNodes)
	e.POST("/nodes", h.handleCreateNode)
	e.GET("/nodes/:id", h.handleGetNode)
	e.PATCH("/nodes/:id/metadata", h.handleUpdateMetadata)
	e.DELETE("/nodes/:id", h.handleDeleteNode)
	e.GET("/nodes/:id/children", h.handleChildren)
	e.GET("/nodes/:id/resources", h.handleResources)
	e.GET("/nodes/:id/associations/:kind", h.handleGetAssociations)
	e.PUT("/nodes/:id/associations/:kind", h.handleSyncAssociations)
	e.POST("/nodes/:id/reorder", h.handleReorder)
	e.POST("/nodes/:id/connect", h.handleConnect)
	e.POST("/nodes/:id/reconnect", h.handleReconnect)
	e.DELETE("/connections/:id", h.handleDisconnect)
	e.GET("/audit", h.handleAudit)
	e.GET("/events", h.handleEvents)
}

// param returns the unescaped path parameter. Taxonomy ids carry colons that some
// clients escape.
func param(c echo.Context, name string) (string, error) {
	return url.PathUnescape(c.Param(name))
}

func (h *Handler) handleListNodes(c echo.Context) error {
	ctx := c.Request().Context()

	query := taxonomy.NodeQuery{
		NodeType: taxonomy.NodeType(c.QueryParam("nodeType")),
		Language: domain.LanguageFrom(ctx),
		Key:      c.QueryParam("key"),
		Value:    c.QueryParam("value"),
	}
	if (query.Key == "") != (query.Value == "") {
		return presenter.BadRequestMessage(c, "key and value must be given together")
	}

	nodes, err := h.node.List(ctx, domain.VersionFrom(ctx), query)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, nodes)
}

func (h *Handler) handleCreateNode(c echo.Context) error {
	ctx := c.Request().Context()

	var node taxonomy.NodePostPut
	if err := c.Bind(&node); err != nil {
		return presenter.BadRequest(c, err)
	}
	if node.Name == "" || node.NodeType == "" {
		return presenter.BadRequestMessage(c, "name and nodeType are required")
	}

	id, err := h.node.Create(ctx, domain.VersionFrom(ctx), node)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, echo.Map{"id": id})
}

func (h *Handler) handleGetNode(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	node, err := h.node.Get(ctx, domain.VersionFrom(ctx), domain.LanguageFrom(ctx), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, node)
}

func (h *Handler) handleUpdateMetadata(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	var update domain.MetadataUpdate
	if err := c.Bind(&update); err != nil {
		return presenter.BadRequest(c, err)
	}

	node, err := h.node.UpdateMetadata(ctx, domain.VersionFrom(ctx), domain.LanguageFrom(ctx), id, update)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, node)
}

func (h *Handler) handleDeleteNode(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	if err := h.node.Delete(ctx, domain.VersionFrom(ctx), id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleChildren(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	children, err := h.node.Children(ctx, domain.VersionFrom(ctx), domain.LanguageFrom(ctx), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, children)
}

func (h *Handler) handleResources(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	resources, err := h.node.Resources(ctx, domain.VersionFrom(ctx), domain.LanguageFrom(ctx), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, resources)
}

func (h *Handler) handleGetAssociations(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}
	kind := domain.AssociationKind(c.Param("kind"))
	if !kind.IsValid() {
		return presenter.BadRequestMessage(c, "unknown association kind")
	}

	associations, err := h.association.Get(ctx, domain.VersionFrom(ctx), kind, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, associations)
}

func (h *Handler) handleSyncAssociations(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}
	kind := domain.AssociationKind(c.Param("kind"))
	if !kind.IsValid() {
		return presenter.BadRequestMessage(c, "unknown association kind")
	}

	var desired []domain.Association
	if err := c.Bind(&desired); err != nil {
		return presenter.BadRequest(c, err)
	}
	for _, a := range desired {
		if a.ID == "" {
			return presenter.BadRequestMessage(c, "every association needs an id")
		}
	}

	report, err := h.association.Sync(ctx, domain.VersionFrom(ctx), kind, id, desired)
	return presenter.Report(c, report, err)
}

type reorderRequest struct {
	Siblings         usecase.SiblingsKind `json:"siblings"`
	SourceIndex      int                  `json:"sourceIndex"`
	DestinationIndex int                  `json:"destinationIndex"`
}

func (h *Handler) handleReorder(c echo.Context) error {
	ctx := c.Request().Context()
	parentID, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Siblings == "" {
		req.Siblings = usecase.SiblingsChildren
	}
	if !req.Siblings.IsValid() {
		return presenter.BadRequestMessage(c, "siblings must be children or resources")
	}

	siblings, err := h.reorder.Reorder(ctx, usecase.ReorderInput{
		Version:          domain.VersionFrom(ctx),
		Language:         domain.LanguageFrom(ctx),
		ParentID:         parentID,
		Siblings:         req.Siblings,
		SourceIndex:      req.SourceIndex,
		DestinationIndex: req.DestinationIndex,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, siblings)
}

type parentRequest struct {
	ParentID string `json:"parentId"`
}

func bindParent(c echo.Context) (string, string, error) {
	id, err := param(c, "id")
	if err != nil {
		return "", "", errors.New("invalid id")
	}
	var req parentRequest
	if err := c.Bind(&req); err != nil {
		return "", "", err
	}
	if req.ParentID == "" {
		return "", "", errors.New("parentId is required")
	}
	if req.ParentID == id {
		return "", "", errors.New("a node cannot be its own parent")
	}
	return id, req.ParentID, nil
}

func (h *Handler) handleConnect(c echo.Context) error {
	ctx := c.Request().Context()
	id, parentID, err := bindParent(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	connectionID, err := h.connection.ConnectExisting(ctx, domain.VersionFrom(ctx), id, parentID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, echo.Map{"connectionId": connectionID})
}

func (h *Handler) handleReconnect(c echo.Context) error {
	ctx := c.Request().Context()
	id, parentID, err := bindParent(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	connectionID, err := h.connection.ReconnectToParent(ctx, domain.VersionFrom(ctx), id, parentID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"connectionId": connectionID})
}

func (h *Handler) handleDisconnect(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := param(c, "id")
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	if err := h.connection.Disconnect(ctx, domain.VersionFrom(ctx), id, c.QueryParam("parentId")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleAudit(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt <= 0 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}

	entries, err := h.node.Audit(ctx, c.QueryParam("entity"), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, entries)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents streams cache invalidations so editors can refetch the views they show.
func (h *Handler) handleEvents(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok && (wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
					return
				}
				slog.DebugContext(
					ctx, "WebSocket closed",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

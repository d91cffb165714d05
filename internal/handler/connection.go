package handler

import (
    "context"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/model"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/service"
)

// ConnectionHandler serves the connection-request endpoints.
type ConnectionHandler struct {
    Conns *service.ConnectionService
    Log   *zap.Logger
}

func NewConnectionHandler(s *service.ConnectionService, log *zap.Logger) *ConnectionHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &ConnectionHandler{Conns: s, Log: log}
}

// sendReq accepts both spellings of the receiver field.
type sendReq struct {
    ReceiverID uint64 `json:"receiver_id"`
    Camel      uint64 `json:"receiverId"`
}

// List: GET /connections?status=.  No status means pending; "all" lists
// every status.
func (h *ConnectionHandler) List(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    status := model.ConnectionPending
    switch q := strings.ToLower(strings.TrimSpace(c.QueryParam("status"))); q {
    case "":
    case "all":
        status = ""
    default:
        st, err := model.ParseConnectionStatus(q)
        if err != nil {
            return writeError(c, h.Log, &service.ValidationError{Field: "status", Message: "must be one of pending, accepted, rejected, blocked, all"})
        }
        status = st
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    list, err := h.Conns.List(ctx, id.UserID, status)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "", list)
}

// Send: POST /connections/send
func (h *ConnectionHandler) Send(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    var req sendReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    receiver := req.ReceiverID
    if receiver == 0 {
        receiver = req.Camel
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    connID, err := h.Conns.Send(ctx, id.UserID, receiver)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.Created(c, "connection request sent", echo.Map{"connection_id": connID})
}

// Accept: PUT /connections/:id/accept (receiver only)
func (h *ConnectionHandler) Accept(c echo.Context) error {
    return h.transition(c, h.Conns.Accept, "connection accepted")
}

// Reject: PUT /connections/:id/reject (receiver only)
func (h *ConnectionHandler) Reject(c echo.Context) error {
    return h.transition(c, h.Conns.Reject, "connection rejected")
}

func (h *ConnectionHandler) transition(c echo.Context, apply func(context.Context, uint64, uint64) error, msg string) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    connID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || connID == 0 {
        return writeError(c, h.Log, &service.ValidationError{Field: "id", Message: "must be a positive integer"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := apply(ctx, connID, id.UserID); err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, msg, echo.Map{"connection_id": connID})
}

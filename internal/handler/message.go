package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/service"
)

// MessageHandler serves /messages.
type MessageHandler struct {
    Svc *service.MessageService
}

func NewMessageHandler(svc *service.MessageService) *MessageHandler { return &MessageHandler{Svc: svc} }

type sendReq struct {
    DemandID string `json:"demandId"`
    To       string `json:"to"`
    Content  string `json:"content"`
}

// Send handles POST /messages.
func (h *MessageHandler) Send(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req sendReq
    if err := bind(c, &req); err != nil {
        return err
    }
    m, err := h.Svc.Send(c.Request().Context(), caller, service.SendInput{DemandID: req.DemandID, To: req.To, Content: req.Content})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, m)
}

// ListByDemand handles GET /messages/demand/:demandId.
func (h *MessageHandler) ListByDemand(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.ListByDemand(c.Request().Context(), caller, c.Param("demandId"), pageOf(c))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// MarkRead handles PUT /messages/demand/:demandId/read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    n, err := h.Svc.MarkRead(c.Request().Context(), caller, c.Param("demandId"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Conversations handles GET /messages/conversations.
func (h *MessageHandler) Conversations(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.Conversations(c.Request().Context(), caller)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

type initReq struct {
    DemandID string `json:"demandId"`
    ClientID string `json:"clientId"`
    Content  string `json:"content"`
}

// Init handles POST /messages/init.  Called by the demand service with the
// accepting provider's credential; safe to repeat.
func (h *MessageHandler) Init(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req initReq
    if err := bind(c, &req); err != nil {
        return err
    }
    if req.DemandID == "" {
        return required("demandId")
    }
    out, err := h.Svc.InitConversation(c.Request().Context(), caller, req.DemandID, req.ClientID, req.Content)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, out)
}

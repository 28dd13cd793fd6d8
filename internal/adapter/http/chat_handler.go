package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	chatDomain "loan-amortization/internal/domain/chat"
	"loan-amortization/internal/usecase/chat"
)

type ChatHandler struct {
	uc  *chat.Usecase
	log *zap.Logger
}

func NewChatHandler(uc *chat.Usecase, log *zap.Logger) *ChatHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{uc: uc, log: log}
}

type chatReq struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	dto, err := h.uc.Reply(c.Request().Context(), chat.ReplyInput(req))
	switch {
	case errors.Is(err, chatDomain.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		h.log.Error("chat reply failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, dto)
}

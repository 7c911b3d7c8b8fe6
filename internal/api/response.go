package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// APIResponse is the envelope of every JSON answer.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Kind      domain.Kind `json:"kind,omitempty"`
	Data      any         `json:"data,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

func SendAPIResponse(c *gin.Context, code int, success bool, message string, data any) {
	c.JSON(code, APIResponse{
		Success:   success,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

var statusByKind = map[domain.Kind]int{
	domain.KindNotFound:              http.StatusNotFound,
	domain.KindAlreadyGraduated:      http.StatusConflict,
	domain.KindGoalNotReached:        http.StatusConflict,
	domain.KindInsufficientFee:       http.StatusPaymentRequired,
	domain.KindInsufficientPayment:   http.StatusPaymentRequired,
	domain.KindOutOfRange:            http.StatusUnprocessableEntity,
	domain.KindInsufficientBalance:   http.StatusUnprocessableEntity,
	domain.KindInvalidAmount:         http.StatusUnprocessableEntity,
	domain.KindInvalidMetadata:       http.StatusUnprocessableEntity,
	domain.KindInvalidAddress:        http.StatusUnprocessableEntity,
	domain.KindGoalUnreachable:       http.StatusUnprocessableEntity,
	domain.KindArithmeticOverflow:    http.StatusUnprocessableEntity,
	domain.KindUnderflow:             http.StatusUnprocessableEntity,
	domain.KindUnderfunded:           http.StatusUnprocessableEntity,
	domain.KindExternalDepositFailed: http.StatusBadGateway,
}

// StatusOf maps an engine error onto an HTTP status.
func StatusOf(err error) int {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest
	}
	if code, ok := statusByKind[domain.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func sendError(c *gin.Context, err error) {
	code := StatusOf(err)
	kind := domain.KindOf(err)
	if code == http.StatusBadRequest {
		kind = ""
	}
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal error"
	}
	_ = c.Error(err)
	c.JSON(code, APIResponse{
		Success:   false,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
}

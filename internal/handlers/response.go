package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/middleware"
)

// Every response uses the same envelope: {ok, data, error, meta}. Both keys
// are always serialized; the one that does not apply is null.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"requestId"`
}

type Envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
	Meta  Meta      `json:"meta"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, Envelope{
		OK:   true,
		Data: payload,
		Meta: Meta{RequestID: middleware.RequestID(c)},
	})
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, Envelope{
		OK:   true,
		Data: payload,
		Meta: Meta{RequestID: middleware.RequestID(c)},
	})
}

func RespondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		OK:    false,
		Error: &APIError{Code: code, Message: message},
		Meta:  Meta{RequestID: middleware.RequestID(c)},
	})
}

// RespondAppError maps service errors onto the envelope, hiding anything that
// is not an api error behind internal_error.
func RespondAppError(c *gin.Context, err error) {
	ae := apierr.From(err)
	RespondError(c, ae.Status, ae.Code, ae.Error())
}

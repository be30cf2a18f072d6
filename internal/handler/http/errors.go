package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/service"
)

func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrAuthenticationFailed) {
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	} else if errors.Is(err, service.ErrRegistrationFailed) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrUserNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

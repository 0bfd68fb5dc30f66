package httpapi

import "github.com/gin-gonic/gin"

// apiError is the standardized error envelope for this API, pared down from
// apimgr-weather's handler.APIError to three codes. The current handlers
// return only NOT_FOUND.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	errNotFound     = "NOT_FOUND"
	errInvalidInput = "INVALID_INPUT"
	errInternal     = "INTERNAL_ERROR"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, apiError{Error: message, Code: code})
}

func notFound(c *gin.Context, message string) {
	respondError(c, 404, errNotFound, message)
}

func invalidInput(c *gin.Context, message string) {
	respondError(c, 400, errInvalidInput, message)
}

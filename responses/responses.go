package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorInfo carries a machine-readable code alongside a human message.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseResponse is the uniform envelope returned by every handler.
type BaseResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SendSuccessResponse writes a 200 envelope carrying data.
func SendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, BaseResponse{
		Success:   true,
		Data:      data,
		Timestamp: timestamp(),
	})
}

// SendCreatedResponse writes a 201 envelope carrying data.
func SendCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, BaseResponse{
		Success:   true,
		Data:      data,
		Timestamp: timestamp(),
	})
}

// SendMessageResponse writes a 200 envelope carrying only a message.
func SendMessageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, BaseResponse{
		Success:   true,
		Message:   message,
		Timestamp: timestamp(),
	})
}

// SendErrorResponse writes an error envelope at the given HTTP status.
func SendErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, BaseResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Timestamp: timestamp(),
	})
}

// ValidationErrorResponse extracts per-field validator errors into a 400
// INVALID_ARGUMENT envelope.
func ValidationErrorResponse(c *gin.Context, err error) {
	var details []gin.H
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details = append(details, gin.H{
				"field":   fe.Field(),
				"tag":     fe.Tag(),
				"value":   fe.Value(),
				"message": validationMessage(fe),
			})
		}
	}

	c.JSON(http.StatusBadRequest, BaseResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    "INVALID_ARGUMENT",
			Message: "request validation failed",
			Details: details,
		},
		Timestamp: timestamp(),
	})
}

// InvalidArgumentResponse writes an INVALID_ARGUMENT envelope with a plain message.
func InvalidArgumentResponse(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

// NotFoundResponse writes a 404 envelope.
func NotFoundResponse(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message)
}

// InternalErrorResponse writes a 500 STORE_UNAVAILABLE-style envelope.
func InternalErrorResponse(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusInternalServerError, "STORE_UNAVAILABLE", message)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "uuid":
		return fe.Field() + " must be a valid uuid"
	default:
		return fe.Field() + " is invalid"
	}
}

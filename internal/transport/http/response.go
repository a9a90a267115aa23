package httptransport

import "github.com/gin-gonic/gin"

// APIResponse is the uniform envelope every JSON endpoint returns. Code
// mirrors the HTTP status so clients watching the body alone can branch on
// it.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes data in a success envelope.
func RespondSuccess(c *gin.Context, status int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(status, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    status,
	})
}

// RespondError writes a failure envelope carrying only the message.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Data:    gin.H{"error": message},
		Message: message,
		Code:    status,
	})
}

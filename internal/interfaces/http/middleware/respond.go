package middleware

import "github.com/gin-gonic/gin"

// abortWithError stops the chain with the envelope shape the handlers
// use, so middleware rejections look the same to clients as handler
// errors.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

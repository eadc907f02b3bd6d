package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Details []Detail `json:"details,omitempty"`
}

func failure(message string, details ...Detail) envelope {
	return envelope{Success: false, Message: message, Details: details}
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

func respondDeleted(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: "deleted"})
}

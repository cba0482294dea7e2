package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// upload stores a file and returns its URL
func (h *Handler) upload(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Uploads not configured",
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}

	url, err := h.uploads.Save(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store file",
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

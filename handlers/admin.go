package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

// ClearRedisHandler flushes the redis cache. Admin escape hatch for when
// cached sessions or listings go stale after manual db surgery.
func ClearRedisHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := models.ClearRedis(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

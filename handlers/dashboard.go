package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func DashboardSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := models.GetDashboardSummary(c.Request.Context())
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func GetHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		histories, err := models.GetHistories(c.Request.Context(),
			queryInt(c, "reference_id"), queryString(c, "reference_type"), queryInt(c, "user_id"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

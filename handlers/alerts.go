package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAlert
		if !bindJSON(c, &input) {
			return
		}

		alert, err := models.CreateAlert(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, alert)
	}
}

func AcknowledgeAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		alert, err := models.AcknowledgeAlert(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func ResolveAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		alert, err := models.ResolveAlert(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func GetAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		alert, err := models.GetAlert(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func GetAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.AlertStatus
		if s := queryString(c, "status"); s != nil {
			st := models.AlertStatus(*s)
			status = &st
		}
		var severity *models.AlertSeverity
		if s := queryString(c, "severity"); s != nil {
			sv := models.AlertSeverity(*s)
			severity = &sv
		}

		alerts, err := models.GetAlerts(c.Request.Context(), queryInt(c, "plant_id"), status, severity)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOrganization
		if !bindJSON(c, &input) {
			return
		}

		org, err := models.CreateOrganization(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

func UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var input models.NewOrganization
		if !bindJSON(c, &input) {
			return
		}

		org, err := models.UpdateOrganization(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

func GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := models.GetOrganizationById(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

func GetOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgs, err := models.GetOrganizations(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, orgs)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func ToggleActiveOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}

		org, err := models.ToggleActiveOrganization(c.Request.Context(), c.Param("id"), *req.IsActive)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVendor
		if !bindJSON(c, &input) {
			return
		}

		vendor, err := models.CreateVendor(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vendor)
	}
}

func UpdateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewVendor
		if !bindJSON(c, &input) {
			return
		}

		vendor, err := models.UpdateVendor(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func DeleteVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		vendor, err := models.DeleteVendor(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func GetVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		vendor, err := models.GetVendor(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func GetVendorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendors, err := models.GetVendors(c.Request.Context(),
			queryString(c, "name"), queryString(c, "provider"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendors)
	}
}

package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func CreatePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPlant
		if !bindJSON(c, &input) {
			return
		}

		plant, err := models.CreatePlant(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, plant)
	}
}

func UpdatePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewPlant
		if !bindJSON(c, &input) {
			return
		}

		plant, err := models.UpdatePlant(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, plant)
	}
}

func DeletePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		plant, err := models.DeletePlant(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, plant)
	}
}

func GetPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		plant, err := models.GetPlant(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, plant)
	}
}

func GetPlantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		plants, err := models.GetPlants(c.Request.Context(),
			queryString(c, "name"), queryInt(c, "vendor_id"), queryBool(c, "is_active"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, plants)
	}
}

func ToggleActivePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}

		plant, err := models.ToggleActivePlant(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, plant)
	}
}

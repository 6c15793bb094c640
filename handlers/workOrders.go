package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateWorkOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewWorkOrder
		if !bindJSON(c, &input) {
			return
		}

		workOrder, err := models.CreateWorkOrder(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, workOrder)
	}
}

func UpdateWorkOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewWorkOrder
		if !bindJSON(c, &input) {
			return
		}

		workOrder, err := models.UpdateWorkOrder(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrder)
	}
}

type updateStatusRequest struct {
	Status models.WorkOrderStatus `json:"status" binding:"required"`
	Reason string                 `json:"reason"`
}

// updateWorkOrderStatus is swapped out in tests.
var updateWorkOrderStatus = models.UpdateWorkOrderStatus

// UpdateWorkOrderStatusHandler drives the lifecycle. A transition outside
// the allowed set answers 400 with the offending pair so clients can show
// a meaningful message.
func UpdateWorkOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req updateStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		if !req.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		workOrder, err := updateWorkOrderStatus(c.Request.Context(), id, req.Status, req.Reason)
		if err != nil {
			var transitionErr *models.InvalidTransitionError
			if errors.As(err, &transitionErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": transitionErr.Error(),
					"from":  transitionErr.From,
					"to":    transitionErr.To,
				})
				return
			}
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrder)
	}
}

func GetNextWorkOrderStatusesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		statuses, err := models.GetNextWorkOrderStatuses(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"statuses": statuses})
	}
}

type attachPlantsRequest struct {
	PlantIds []int `json:"plant_ids" binding:"required,min=1"`
}

func AttachWorkOrderPlantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req attachPlantsRequest
		if !bindJSON(c, &req) {
			return
		}

		workOrder, err := models.AddWorkOrderPlants(c.Request.Context(), id, req.PlantIds)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrder)
	}
}

func DetachWorkOrderPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		plantId, ok := pathId(c, "plantId")
		if !ok {
			return
		}

		workOrder, err := models.DetachWorkOrderPlant(c.Request.Context(), id, plantId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrder)
	}
}

func GetWorkOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		workOrder, err := models.GetWorkOrder(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrder)
	}
}

func GetWorkOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.WorkOrderStatus
		if s := queryString(c, "status"); s != nil {
			st := models.WorkOrderStatus(*s)
			if !st.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			status = &st
		}

		workOrders, err := models.GetWorkOrders(c.Request.Context(),
			status, queryInt(c, "assignee_id"), queryInt(c, "plant_id"))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, workOrders)
	}
}

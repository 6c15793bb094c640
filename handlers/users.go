package handlers

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/gin-gonic/gin"
)

func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}

		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// GetUsersHandler lists users. Admins may pass org_id to scope the listing;
// everyone else sees their own org only.
func GetUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		orgId := strings.TrimSpace(c.Query("org_id"))
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		if !isAdmin {
			orgId, _ = utils.GetOrgIdFromContext(ctx)
		}

		users, err := models.GetAllUsers(ctx, orgId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// MeHandler returns the authenticated user's own record.
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		user, err := models.GetUser(ctx, userId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.User
		if !bindJSON(c, &input) {
			return
		}

		user, err := input.UpdateUser(id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, user)
	}
}

func DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}

		var user models.User
		deleted, err := user.DeleteUser(id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		if err := deleted.DestroyAllSessions(c.Request.Context()); err != nil {
			writeModelError(c, err)
			return
		}
		deleted.PrepareGive()
		c.JSON(http.StatusOK, deleted)
	}
}

package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	OrgId         string    `gorm:"index;not null" json:"org_id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type" binding:"required"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) (err error) {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	// get orgId, userId, userName from context
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return errors.New("org id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	history.OrgId = orgId
	history.ActionType = actionType
	history.Before = string(b)
	history.After = string(a)
	history.Description = description
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName

	err = tx.Create(&history).Error
	return err
}

func SaveHistoryCreate(tx *gorm.DB, id int, obj interface{}, description string) error {
	return createHistory(tx, "CREATE", id, tx.Statement.Table, nil, obj, description)
}

func SaveHistoryUpdate(tx *gorm.DB, id int, currentValue interface{}, description string) error {

	var newValue = tx.Statement.Dest

	return createHistory(tx, "UPDATE", id, tx.Statement.Table, currentValue, newValue, description)
}

func SaveHistoryDelete(tx *gorm.DB, id int, obj interface{}, description string) error {
	return createHistory(tx, "DELETE", id, tx.Statement.Table, obj, nil, description)
}

func GetHistories(ctx context.Context, referenceId *int, referenceType *string, userId *int) ([]*History, error) {

	db := config.GetDB()
	var results []*History

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	// only the last 3 months are browsable; older rows stay for audit exports
	since, _ := utils.GetLastMonthsRange(3)
	dbCtx := db.WithContext(ctx).Where("org_id = ? AND created_at >= ?", orgId, since)
	if referenceId != nil && *referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	if referenceType != nil && len(*referenceType) > 0 {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if userId != nil && *userId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	err := dbCtx.Order("created_at DESC").Limit(200).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

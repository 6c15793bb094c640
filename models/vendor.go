package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

// Vendor is a monitoring platform account (Solarman etc.) whose plants are
// pulled into the dashboard. OrgId is nullable on purpose: a vendor that has
// not been claimed by an org yet cannot be synced.
type Vendor struct {
	ID                int        `gorm:"primary_key" json:"id"`
	OrgId             *string    `gorm:"index;size:36" json:"org_id"`
	Name              string     `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Provider          string     `gorm:"index;size:50;not null" json:"provider"`
	Status            string     `gorm:"size:20;not null;default:disconnected" json:"status"`
	AppId             string     `gorm:"size:128" json:"app_id"`
	AppSecret         string     `gorm:"size:255" json:"-"`
	Username          string     `gorm:"size:100" json:"username"`
	Password          string     `gorm:"size:255" json:"-"`
	BaseUrl           string     `gorm:"size:255" json:"base_url"`
	SettingsJSON      []byte     `gorm:"type:json" json:"settings"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSuccessSyncAt *time.Time `json:"last_success_sync_at"`
	IsActive          *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v Vendor) GetOrgId() string {
	return utils.DereferencePtr(v.OrgId)
}

func (obj Vendor) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Vendor](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Vendor) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[Vendor](utils.DereferencePtr(obj.OrgId)); err != nil {
		return err
	}
	return nil
}

type NewVendor struct {
	OrgId     *string `json:"org_id"`
	Name      string  `json:"name" binding:"required"`
	Provider  string  `json:"provider" binding:"required"`
	AppId     string  `json:"app_id"`
	AppSecret string  `json:"app_secret"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	BaseUrl   string  `json:"base_url"`
	Settings  []byte  `json:"settings"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewVendor) validate(ctx context.Context, id int) error {
	if input.Provider != VendorProviderSolarman && input.Provider != VendorProviderStatic {
		return errors.New("invalid provider")
	}
	if input.OrgId != nil && *input.OrgId != "" {
		if _, err := GetOrganization(ctx, *input.OrgId); err != nil {
			return errors.New("organization not found")
		}
	}
	db := config.GetDB()
	var count int64
	dbCtx := db.WithContext(ctx).Model(&Vendor{}).Where("name = ?", input.Name)
	if id > 0 {
		dbCtx = dbCtx.Not("id = ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate vendor name")
	}
	return nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	vendor := Vendor{
		OrgId:        input.OrgId,
		Name:         input.Name,
		Provider:     input.Provider,
		Status:       VendorStatusDisconnected,
		AppId:        input.AppId,
		AppSecret:    input.AppSecret,
		Username:     input.Username,
		Password:     input.Password,
		BaseUrl:      input.BaseUrl,
		SettingsJSON: input.Settings,
		IsActive:     utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&vendor).Error
	if err != nil {
		return nil, err
	}

	return &vendor, nil
}

func UpdateVendor(ctx context.Context, id int, input *NewVendor) (*Vendor, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	vendor, err := GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"OrgId":        input.OrgId,
		"Name":         input.Name,
		"Provider":     input.Provider,
		"Username":     input.Username,
		"BaseUrl":      input.BaseUrl,
		"SettingsJSON": input.Settings,
	}
	// credentials only overwritten when provided
	if input.AppId != "" {
		updates["AppId"] = input.AppId
	}
	if input.AppSecret != "" {
		updates["AppSecret"] = input.AppSecret
	}
	if input.Password != "" {
		updates["Password"] = input.Password
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&vendor).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*vendor); err != nil {
		return nil, err
	}

	return vendor, nil
}

func DeleteVendor(ctx context.Context, id int) (*Vendor, error) {

	vendor, err := GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	// vendor with synced plants keeps its rows; only the connection goes away
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Plant{}).Where("vendor_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("vendor still owns synced plants")
	}

	err = db.WithContext(ctx).Delete(&vendor).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*vendor); err != nil {
		return nil, err
	}

	return vendor, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {

	db := config.GetDB()
	var result Vendor

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetVendors(ctx context.Context, name *string, provider *string) ([]*Vendor, error) {

	db := config.GetDB()
	var results []*Vendor

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if provider != nil && len(*provider) > 0 {
		dbCtx = dbCtx.Where("provider = ?", *provider)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkVendorSyncTimes stamps sync bookkeeping after a run.
func MarkVendorSyncTimes(ctx context.Context, vendorId int, success bool, status string) error {
	db := config.GetDB()
	now := time.Now()
	updates := map[string]interface{}{
		"LastSyncAt": &now,
		"Status":     status,
	}
	if success {
		updates["LastSuccessSyncAt"] = &now
	}
	return db.WithContext(ctx).Model(&Vendor{}).Where("id = ?", vendorId).
		Updates(updates).Error
}

package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/google/uuid"
)

// Organization is the tenant. Every org-scoped table carries its id in org_id.
type Organization struct {
	Id        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	Address   string    `gorm:"type:text" json:"address"`
	Country   string    `gorm:"size:100" json:"country"`
	Timezone  string    `gorm:"size:100" json:"timezone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrganization struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

func (input *NewOrganization) validate(ctx context.Context) error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Organization{}).
		Where("name = ?", input.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate organization name")
	}
	return nil
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	org := Organization{
		Id:       uuid.NewString(),
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    strings.ToLower(input.Email),
		Address:  input.Address,
		Country:  input.Country,
		Timezone: input.Timezone,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&org).Error
	if err != nil {
		return nil, err
	}

	return &org, nil
}

func UpdateOrganization(ctx context.Context, id string, input *NewOrganization) (*Organization, error) {

	db := config.GetDB()
	var org Organization
	if err := db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}

	err := db.WithContext(ctx).Model(&org).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Phone":    input.Phone,
		"Email":    strings.ToLower(input.Email),
		"Address":  input.Address,
		"Country":  input.Country,
		"Timezone": input.Timezone,
	}).Error
	if err != nil {
		return nil, err
	}

	return &org, nil
}

func GetOrganization(ctx context.Context, id string) (*Organization, error) {

	db := config.GetDB()
	var result Organization

	err := db.WithContext(ctx).First(&result, "id = ?", id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// GetOrganizationById is GetOrganization with a redis cache in front.
func GetOrganizationById(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	exists, err := config.GetRedisObject("Organization:"+id, &org)
	if err != nil {
		return nil, err
	}
	if exists {
		return &org, nil
	}
	result, err := GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("Organization:"+id, result, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	return result, nil
}

func GetOrganizations(ctx context.Context, name *string) ([]*Organization, error) {

	db := config.GetDB()
	var results []*Organization

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveOrganization(ctx context.Context, id string, isActive bool) (*Organization, error) {

	db := config.GetDB()
	var org Organization
	if err := db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Model(&org).UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey("Organization:" + id); err != nil {
		return nil, err
	}
	return &org, nil
}

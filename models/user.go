package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	OrgId     string    `gorm:"index" json:"org_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	Role      UserRole  `gorm:"type:enum('A', 'O', 'U');default:O" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	OrgId    string   `json:"org_id"`
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	IsActive *bool    `json:"is_active" binding:"required"`
	Role     UserRole `json:"role" binding:"required"`
}

/*
caches:
	User:$username
*/

func (user User) RemoveInstanceRedis() error {
	if err := config.RemoveRedisKey("User:" + user.Username); err != nil {
		return err
	}
	return nil
}

func (user User) RemoveAllRedis() error {
	if err := config.RemoveRedisKey("UserList:" + user.OrgId); err != nil {
		return err
	}
	return nil
}

type LoginInfo struct {
	Token       string   `json:"token"`
	AccessToken string   `json:"access_token"`
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	OrgId       string   `json:"org_id"`
	OrgName     string   `json:"org_name"`
	Timezone    string   `json:"timezone"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	// remove current token from tokens list
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func ClearRedis(ctx context.Context) (string, error) {
	err := config.ClearRedis(ctx)
	if err != nil {
		return "Failed to clear redis", nil
	}
	return "OK", nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var err error
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error

		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)

	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid username or password")
	}

	isActive := *user.IsActive
	if !isActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	result.Name = user.Username
	result.Role = user.Role
	result.OrgId = user.OrgId

	// admins and auditors are not bound to an org
	if user.OrgId != "" {
		org, err := GetOrganizationById(ctx, user.OrgId)
		if err != nil {
			return nil, err
		}
		result.OrgName = org.Name
		result.Timezone = org.Timezone
	}

	// store token in redis
	token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		return &result, err
	}

	// JWT for service-to-service callers that carry no redis session
	jwtToken, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return &result, err
	}
	result.AccessToken = jwtToken

	// add new token to the user's tokens set
	if err := config.AddRedisSet("Tokens:"+user.Username, token.String()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token.String(), user.Username, time.Duration(token_lifespan)*time.Hour); err != nil {
		return &result, err
	}

	return &result, nil
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {

	db := config.GetDB()
	user := User{}

	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
	}
	return &user, nil
}

func GetAllUsers(ctx context.Context, orgId string) ([]*User, error) {

	db := config.GetDB()
	var results []*User

	dbCtx := db.WithContext(ctx)
	if orgId != "" {
		dbCtx = dbCtx.Where("org_id = ?", orgId)
	}
	if err := dbCtx.Find(&results).Error; err != nil {
		return results, errors.New("no user")
	}

	for i, u := range results {
		u.Password = ""
		results[i] = u
	}

	return results, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return &User{}, errors.New("invalid email address")
	}
	if !input.Role.IsValid() {
		return &User{}, errors.New("invalid role")
	}
	// operators must belong to an org; auditors must not
	if input.Role == UserRoleOperator && input.OrgId == "" {
		return &User{}, errors.New("org id is required for operators")
	}
	if input.Role == UserRoleAuditor && input.OrgId != "" {
		return &User{}, errors.New("auditors cannot belong to an org")
	}
	if input.OrgId != "" {
		if _, err := GetOrganization(ctx, input.OrgId); err != nil {
			return &User{}, errors.New("organization not found")
		}
	}

	err := db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Or("email = ?", input.Email).Count(&count).Error
	if err != nil {
		return &User{}, err
	}
	if count > 0 {
		return &User{}, errors.New("duplicate username or email")
	}

	hashedPassword, err := utils.HashPasswordString(input.Password)
	if err != nil {
		return &User{}, err
	}
	input.Email = strings.ToLower(input.Email)

	user := User{
		Username: html.EscapeString(strings.TrimSpace(input.Username)),
		OrgId:    input.OrgId,
		Name:     input.Name,
		Email:    utils.NilIfEmpty(input.Email),
		Phone:    input.Phone,
		Password: hashedPassword,
		IsActive: input.IsActive,
		Role:     input.Role,
	}

	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return &User{}, err
	}
	user.Password = ""
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {

	result, err := utils.FetchSingleModel[User](ctx, id)
	if err != nil {
		return nil, err
	}

	result.PrepareGive()

	return result, nil
}

func (input *User) UpdateUser(id int) (*User, error) {

	db := config.GetDB()
	var count int64

	err := db.Model(&User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return &User{}, err
	}
	if count <= 0 {
		return nil, utils.ErrorRecordNotFound
	}

	if err = db.Model(&User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Not("id = ?", id).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return &User{}, errors.New("duplicate email or username")
	}

	err = db.Model(&input).Updates(User{Name: input.Name, Email: input.Email, Username: input.Username, IsActive: input.IsActive}).Error
	if err != nil {
		return &User{}, err
	}
	return input, nil
}

func (input *User) DeleteUser(id int) (*User, error) {

	db := config.GetDB()

	err := db.Model(&User{}).Where("id = ?", id).First(&input).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	err = db.Delete(&input).Error
	if err != nil {
		return &User{}, err
	}
	return input, nil
}

func (user *User) DestroyAllSessions(ctx context.Context) error {
	allTokens, err := config.GetRedisSetMembers("Tokens:" + user.Username)
	if err != nil {
		return err
	}
	for _, token := range allTokens {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			return err
		}
	}
	if err := config.RemoveRedisKey("Tokens:" + user.Username); err != nil {
		return err
	}

	return nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user id is required")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, err
	}
	// check oldPassword
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, errors.New("old password is wrong")
	}

	//turn password into hash
	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	newPassword = string(hashedPassword)

	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&user).UpdateColumn("password", newPassword).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := config.RemoveRedisKey("User:" + user.Username); err != nil {
		tx.Rollback()
		return nil, err
	}

	// destroying all session tokens
	if err := user.DestroyAllSessions(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}

	return &user, tx.Commit().Error
}

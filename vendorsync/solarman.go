package vendorsync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
)

// solarmanClient pulls the station list from the Solarman business API.
// Token is cached in redis so repeated syncs do not burn auth quota.
type solarmanClient struct {
	vendorId  string
	baseURL   string
	appId     string
	appSecret string
	username  string
	password  string
	http      *http.Client
	limiter   <-chan time.Time
}

func newSolarmanClient(vendor *models.Vendor) (*solarmanClient, error) {
	baseURL := strings.TrimSpace(vendor.BaseUrl)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("SOLARMAN_API_BASE_URL"))
	}
	if baseURL == "" {
		baseURL = "https://api.solarmanpv.com"
	}
	if strings.TrimSpace(vendor.AppId) == "" || strings.TrimSpace(vendor.AppSecret) == "" {
		return nil, errors.New("solarman app credentials are empty")
	}
	rateLimitPerMin := int64(30)
	if v := strings.TrimSpace(os.Getenv("SOLARMAN_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &solarmanClient{
		vendorId:  strconv.Itoa(vendor.ID),
		baseURL:   strings.TrimRight(baseURL, "/"),
		appId:     vendor.AppId,
		appSecret: vendor.AppSecret,
		username:  vendor.Username,
		password:  vendor.Password,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type solarmanStation struct {
	ID                json.Number  `json:"id"`
	Name              string       `json:"name"`
	InstalledCapacity *json.Number `json:"installedCapacity"`
	GenerationPower   *json.Number `json:"generationPower"`
	GenerationValue   *json.Number `json:"generationValue"`
	GenerationTotal   *json.Number `json:"generationTotal"`
	LocationLat       *json.Number `json:"locationLat"`
	LocationLng       *json.Number `json:"locationLng"`
	LocationAddress   string       `json:"locationAddress"`
	LastUpdateTime    *json.Number `json:"lastUpdateTime"`
}

type solarmanStationListResponse struct {
	Success     *bool             `json:"success"`
	Msg         string            `json:"msg"`
	Total       int               `json:"total"`
	StationList []solarmanStation `json:"stationList"`
}

func (c *solarmanClient) ListPlants(ctx context.Context) ([]VendorPlant, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var all []VendorPlant
	page := 1
	for {
		resp, err := c.getStationPage(ctx, token, page)
		if err != nil {
			return nil, err
		}
		if resp.Success != nil && !*resp.Success {
			return nil, fmt.Errorf("solarman api error: %s", resp.Msg)
		}

		for _, station := range resp.StationList {
			all = append(all, VendorPlant{
				ExternalId:     station.ID.String(),
				Name:           station.Name,
				CapacityKw:     station.InstalledCapacity,
				CurrentPowerKw: station.GenerationPower,
				EnergyTodayKwh: station.GenerationValue,
				EnergyTotalKwh: station.GenerationTotal,
				Latitude:       station.LocationLat,
				Longitude:      station.LocationLng,
				Address:        station.LocationAddress,
				LastSeenAt:     epochToRFC3339(station.LastUpdateTime),
			})
		}

		if len(all) >= resp.Total || len(resp.StationList) == 0 {
			return all, nil
		}
		page++
	}
}

func (c *solarmanClient) getStationPage(ctx context.Context, token string, page int) (solarmanStationListResponse, error) {
	<-c.limiter
	endpoint := fmt.Sprintf("%s/station/v1.0/station/list?language=en", c.baseURL)
	body, err := json.Marshal(map[string]interface{}{
		"page": page,
		"size": 100,
	})
	if err != nil {
		return solarmanStationListResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return solarmanStationListResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return solarmanStationListResponse{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return solarmanStationListResponse{}, fmt.Errorf("solarman api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed solarmanStationListResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return solarmanStationListResponse{}, err
	}
	return parsed, nil
}

func (c *solarmanClient) getToken(ctx context.Context) (string, error) {
	cacheKey := "SolarmanToken:" + c.vendorId
	if token, found, err := config.GetRedisValue(cacheKey); err == nil && found && token != "" {
		return token, nil
	}

	<-c.limiter
	endpoint := fmt.Sprintf("%s/account/v1.0/token?appId=%s&language=en", c.baseURL, c.appId)
	hashed := sha256.Sum256([]byte(c.password))
	body, err := json.Marshal(map[string]string{
		"appSecret": c.appSecret,
		"email":     c.username,
		"password":  hex.EncodeToString(hashed[:]),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("solarman token error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		AccessToken string      `json:"access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
		Msg         string      `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("solarman token missing: %s", parsed.Msg)
	}

	lifespan := time.Hour
	if sec, err := parsed.ExpiresIn.Int64(); err == nil && sec > 60 {
		// Refresh a minute early to avoid using a token at the edge of expiry.
		lifespan = time.Duration(sec-60) * time.Second
	}
	_ = config.SetRedisValue(cacheKey, parsed.AccessToken, lifespan)

	return parsed.AccessToken, nil
}

func epochToRFC3339(n *json.Number) string {
	if n == nil {
		return ""
	}
	sec, err := n.Int64()
	if err != nil || sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

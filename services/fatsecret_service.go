package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dietica/models"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

const (
	fatSecretTokenURL = "https://oauth.fatsecret.com/connect/token"
	fatSecretAPIURL   = "https://platform.fatsecret.com/rest"
	// tokens are refreshed this long before they expire
	tokenSkew = time.Minute
)

// FatSecretService calls the FatSecret platform API with a client-credentials
// token that is cached in memory and in the database.
type FatSecretService struct {
	db           *gorm.DB
	client       *http.Client
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string
	log          *log.Logger
	now          func() time.Time

	mu    sync.Mutex
	token string
	exp   time.Time
}

func NewFatSecretService(db *gorm.DB, clientID, clientSecret string, logger *log.Logger) *FatSecretService {
	return &FatSecretService{
		db:           db,
		client:       &http.Client{Timeout: 10 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     fatSecretTokenURL,
		apiURL:       fatSecretAPIURL,
		log:          logger,
		now:          time.Now,
	}
}

// WithEndpoints overrides the token and API base URLs.
func (s *FatSecretService) WithEndpoints(tokenURL, apiURL string) *FatSecretService {
	s.tokenURL = tokenURL
	s.apiURL = strings.TrimRight(apiURL, "/")
	return s
}

func (s *FatSecretService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if s.token != "" && now.Add(tokenSkew).Before(s.exp) {
		return s.token, nil
	}

	var cached models.FatSecretToken
	err := s.db.WithContext(ctx).Where("expires_at > ?", now.Add(tokenSkew)).
		Order("expires_at DESC").First(&cached).Error
	switch {
	case err == nil:
		s.token, s.exp = cached.Token, cached.ExpiresAt
		return s.token, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", dbErr("load fatsecret token", err)
	}

	if s.clientID == "" || s.clientSecret == "" {
		return "", transport("fatsecret", errors.New("FATSECRET_CLIENT_ID/FATSECRET_CLIENT_SECRET not set"))
	}

	form := url.Values{"grant_type": {"client_credentials"}, "scope": {"basic"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.do(req)
	if err != nil {
		return "", err
	}
	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", transport("fatsecret token", fmt.Errorf("unexpected token response: %s", preview(body)))
	}

	s.token, s.exp = tr.AccessToken, now.Add(time.Duration(tr.ExpiresIn)*time.Second)
	row := models.FatSecretToken{Token: s.token, ExpiresAt: s.exp}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("fatsecret token not cached", "err", err)
	}
	return s.token, nil
}

func (s *FatSecretService) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transport("fatsecret request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transport("read fatsecret response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transport("fatsecret", fmt.Errorf("api error %d: %s", resp.StatusCode, preview(body)))
	}
	return body, nil
}

func (s *FatSecretService) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	tok, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fatsecret request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, transport("fatsecret", fmt.Errorf("invalid JSON: %s", preview(body)))
	}
	return json.RawMessage(body), nil
}

// SearchFoods runs foods.search; page is zero-based as in the FatSecret API.
func (s *FatSecretService) SearchFoods(ctx context.Context, query string, page, limit int) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalidf("query must not be empty")
	}
	if page < 0 {
		return nil, invalidf("page must not be negative")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.get(ctx, "/foods/search/v1", url.Values{
		"search_expression": {query},
		"page_number":       {strconv.Itoa(page)},
		"max_results":       {strconv.Itoa(limit)},
	})
}

func (s *FatSecretService) GetFood(ctx context.Context, foodID string) (json.RawMessage, error) {
	if strings.TrimSpace(foodID) == "" {
		return nil, invalidf("food id must not be empty")
	}
	return s.get(ctx, "/food/v4", url.Values{"food_id": {foodID}})
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"dietica/utils"
)

type FoodService struct {
	fs  *FatSecretService
	rek LabelDetector
}

type Recognition struct {
	Labels  []string        `json:"labels"`
	Query   string          `json:"query"`
	Results json.RawMessage `json:"results"`
}

func NewFoodService(fs *FatSecretService, rek LabelDetector) *FoodService {
	return &FoodService{fs: fs, rek: rek}
}

func (s *FoodService) Search(ctx context.Context, query string, page, limit int) (json.RawMessage, error) {
	return s.fs.SearchFoods(ctx, query, page, limit)
}

func (s *FoodService) Get(ctx context.Context, foodID string) (json.RawMessage, error) {
	return s.fs.GetFood(ctx, foodID)
}

// Recognize labels a base64 data-URI photo and searches for the top label.
func (s *FoodService) Recognize(ctx context.Context, dataURI string) (*Recognition, error) {
	img, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	labels, err := s.rek.DetectLabels(ctx, img.Data)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels detected: %w", ErrNotFound)
	}
	results, err := s.fs.SearchFoods(ctx, labels[0], 0, 10)
	if err != nil {
		return nil, err
	}
	return &Recognition{Labels: labels, Query: labels[0], Results: results}, nil
}

package mealplan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"recipe-planner/internal/core/cache"
	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// 購物清單來源，用於指標標籤
const (
	SourceCache  = "cache"
	SourceStore  = "store"
	SourceInline = "inline"
)

// Repository 餐點計畫與食材資料來源
type Repository interface {
	ListMealPlans(ctx context.Context, userID int64, start, end *time.Time, mealTypes []grocery.MealType) ([]grocery.MealPlanEntry, error)
	IngredientLines(ctx context.Context, recipeID int64) ([]grocery.IngredientLine, error)
}

// Service 依使用者的餐點計畫產生購物清單
type Service struct {
	repo      Repository
	lines     grocery.LineSource
	assembler *grocery.Assembler
	cache     cache.Store
	ttl       time.Duration
	workers   int
}

// Option 設定 Service
type Option func(*Service)

// WithCache 啟用購物清單快取，store 為 nil 時不快取
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.ttl = ttl
	}
}

// WithLineSource 以其他來源 (例如遠端目錄) 取得食材行
func WithLineSource(src grocery.LineSource) Option {
	return func(s *Service) {
		if src != nil {
			s.lines = src
		}
	}
}

// WithPrefetchWorkers 設定同時取得食材的數量上限
func WithPrefetchWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// NewService 建立服務，預設從 repo 取得食材行
func NewService(repo Repository, assembler *grocery.Assembler, opts ...Option) *Service {
	if assembler == nil {
		assembler = grocery.NewAssembler()
	}
	s := &Service{
		repo:      repo,
		lines:     repo,
		assembler: assembler,
		workers:   8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entries 列出符合條件的餐點計畫
func (s *Service) Entries(ctx context.Context, userID int64, f Filter) ([]grocery.MealPlanEntry, error) {
	return s.repo.ListMealPlans(ctx, userID, f.Start, f.End, f.MealTypes)
}

// GroceryList 產生使用者的購物清單，回傳清單與來源 (cache 或 store)
func (s *Service) GroceryList(ctx context.Context, userID int64, f Filter) (*grocery.GroceryList, string, error) {
	key := f.CacheKey(userID)
	if list, ok := s.cached(ctx, key); ok {
		return list, SourceCache, nil
	}

	entries, err := s.Entries(ctx, userID, f)
	if err != nil {
		return nil, "", err
	}

	lines, err := grocery.Prefetch(ctx, s.lines, entries, s.workers)
	if err != nil {
		return nil, "", err
	}

	list, err := s.assembler.Generate(ctx, lines, entries)
	if err != nil {
		return nil, "", err
	}

	s.store(ctx, key, list)
	common.LogInfo(common.MsgGroceryBuilt,
		zap.Int64("user_id", userID),
		zap.Int("meal_plans", list.MealPlansCount),
		zap.Int("items", list.TotalItems),
	)
	return list, SourceStore, nil
}

// Assemble 以請求內附的食材行產生購物清單，不經過快取
func (s *Service) Assemble(ctx context.Context, entries []grocery.MealPlanEntry, lines grocery.StaticSource) (*grocery.GroceryList, error) {
	return s.assembler.Generate(ctx, lines, entries)
}

// Invalidate 清除使用者所有購物清單快取
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	n, err := s.cache.DeletePrefix(ctx, userPrefix(userID))
	if err != nil {
		return err
	}
	common.LogDebug("Grocery cache invalidated", zap.Int64("user_id", userID), zap.Int("keys", n))
	return nil
}

func (s *Service) cached(ctx context.Context, key string) (*grocery.GroceryList, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	list, err := grocery.DecodeSnapshot(data)
	if err != nil {
		common.LogWarn("Cached grocery list is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return list, true
}

func (s *Service) store(ctx context.Context, key string, list *grocery.GroceryList) {
	if s.cache == nil {
		return
	}
	data, err := grocery.EncodeSnapshot(list)
	if err != nil {
		common.LogWarn("Encode grocery snapshot failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		common.LogWarn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

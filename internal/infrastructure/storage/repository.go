package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// Recipe 食譜與其食材
type Recipe struct {
	ID          int64                    `json:"id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	PrepTime    int                      `json:"prep_time"`
	CookTime    int                      `json:"cook_time"`
	Servings    int                      `json:"servings"`
	Ingredients []grocery.IngredientLine `json:"ingredients"`
}

// SQLiteRepository 以 SQLite 保存食譜與餐點計畫
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository 開啟資料庫並執行遷移
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	common.LogInfo("SQLite 已開啟", zap.String("path", dbPath))
	return &SQLiteRepository{db: db}, nil
}

// Close 關閉資料庫
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping 檢查資料庫連線
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// querier 讓同一段 SQL 可在 *sql.DB 或 *sql.Tx 上執行
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CreateRecipe 在同一交易中建立食譜與食材行
func (r *SQLiteRepository) CreateRecipe(ctx context.Context, recipe Recipe) (int64, error) {
	if err := validateRecipe(recipe); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	recipeID, err := insertRecipe(ctx, tx, recipe)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit recipe: %w", err)
	}

	common.LogDebug("Recipe saved to SQLite",
		zap.Int64("id", recipeID),
		zap.String("title", recipe.Title),
		zap.Int("ingredients", len(recipe.Ingredients)),
	)
	return recipeID, nil
}

func validateRecipe(recipe Recipe) error {
	if strings.TrimSpace(recipe.Title) == "" {
		return common.NewFieldError("title", "食譜標題不可為空")
	}
	for i, line := range recipe.Ingredients {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("ingredient %d: %w", i, err)
		}
	}
	return nil
}

func insertRecipe(ctx context.Context, q querier, recipe Recipe) (int64, error) {
	servings := recipe.Servings
	if servings <= 0 {
		servings = 1
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO recipes (title, description, prep_time, cook_time, servings) VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(recipe.Title), recipe.Description, recipe.PrepTime, recipe.CookTime, servings,
	)
	if err != nil {
		return 0, fmt.Errorf("insert recipe: %w", err)
	}
	recipeID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recipe id: %w", err)
	}

	for _, line := range recipe.Ingredients {
		ingredientID, err := upsertIngredient(ctx, q, strings.TrimSpace(line.Name))
		if err != nil {
			return 0, err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit, notes) VALUES (?, ?, ?, ?, ?)`,
			recipeID, ingredientID, line.Quantity.String(), line.Unit, line.Notes,
		); err != nil {
			return 0, fmt.Errorf("insert recipe ingredient: %w", err)
		}
	}
	return recipeID, nil
}

// findRecipeByTitle 以不分大小寫的標題查找食譜，找不到時回傳 0
func findRecipeByTitle(ctx context.Context, q querier, title string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM recipes WHERE title = ? COLLATE NOCASE ORDER BY id LIMIT 1`, strings.TrimSpace(title),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find recipe: %w", err)
	}
	return id, nil
}

func upsertIngredient(ctx context.Context, q querier, name string) (int64, error) {
	if _, err := q.ExecContext(ctx, `INSERT INTO ingredients (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("insert ingredient: %w", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM ingredients WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select ingredient: %w", err)
	}
	return id, nil
}

// GetRecipe 取得食譜與食材
func (r *SQLiteRepository) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	recipe := Recipe{ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT title, description, prep_time, cook_time, servings FROM recipes WHERE id = ?`, id,
	).Scan(&recipe.Title, &recipe.Description, &recipe.PrepTime, &recipe.CookTime, &recipe.Servings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	lines, err := r.IngredientLines(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = lines
	return &recipe, nil
}

// IngredientLines 依食材名稱排序取得食譜的食材行
func (r *SQLiteRepository) IngredientLines(ctx context.Context, recipeID int64) ([]grocery.IngredientLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.name, ri.quantity, ri.unit, ri.notes
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY i.name COLLATE NOCASE, ri.id`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query ingredient lines: %w", err)
	}
	defer rows.Close()

	var lines []grocery.IngredientLine
	for rows.Next() {
		var line grocery.IngredientLine
		var qty string
		if err := rows.Scan(&line.Name, &qty, &line.Unit, &line.Notes); err != nil {
			return nil, fmt.Errorf("scan ingredient line: %w", err)
		}
		if line.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("recipe %d ingredient %q has malformed quantity %q: %w", recipeID, line.Name, qty, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredient lines: %w", err)
	}
	return lines, nil
}

// CreateMealPlan 建立餐點計畫，同一使用者同一天同一餐別只能有一筆
func (r *SQLiteRepository) CreateMealPlan(ctx context.Context, entry grocery.MealPlanEntry) (int64, error) {
	return insertMealPlan(ctx, r.db, entry)
}

func insertMealPlan(ctx context.Context, q querier, entry grocery.MealPlanEntry) (int64, error) {
	if entry.MealType == "" {
		entry.MealType = grocery.MealDinner
	}
	if !entry.MealType.Valid() {
		return 0, common.NewFieldError("meal_type", fmt.Sprintf("未知的餐別 %q", entry.MealType))
	}
	if entry.Date.IsZero() {
		return 0, common.NewFieldError("date", "日期不可為空")
	}

	var exists int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM recipes WHERE id = ?`, entry.RecipeID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check recipe: %w", err)
	}
	if exists == 0 {
		return 0, common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %d", entry.RecipeID))
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, recipe_id, date, meal_type, notes) VALUES (?, ?, ?, ?, ?)`,
		entry.UserID, entry.RecipeID, entry.Date.Format(common.DateLayout), string(entry.MealType), entry.Notes,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, common.ErrMealPlanConflict.Wrap(err)
		}
		return 0, fmt.Errorf("insert meal plan: %w", err)
	}
	return res.LastInsertId()
}

// DeleteMealPlan 刪除使用者的餐點計畫
func (r *SQLiteRepository) DeleteMealPlan(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete meal plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete meal plan: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound.Wrap(fmt.Errorf("meal plan %d", id))
	}
	return nil
}

// ListMealPlans 依日期、餐別排序列出使用者的餐點計畫
//
// start、end 為 nil 時該端不設限；mealTypes 為空時不篩選餐別。
func (r *SQLiteRepository) ListMealPlans(ctx context.Context, userID int64, start, end *time.Time, mealTypes []grocery.MealType) ([]grocery.MealPlanEntry, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT mp.id, mp.user_id, mp.recipe_id, r.title, mp.date, mp.meal_type, mp.notes
		FROM meal_plans mp
		JOIN recipes r ON r.id = mp.recipe_id
		WHERE mp.user_id = ?`)
	args := []interface{}{userID}

	if start != nil {
		query.WriteString(` AND mp.date >= ?`)
		args = append(args, start.Format(common.DateLayout))
	}
	if end != nil {
		query.WriteString(` AND mp.date <= ?`)
		args = append(args, end.Format(common.DateLayout))
	}
	if len(mealTypes) > 0 {
		query.WriteString(` AND mp.meal_type IN (?` + strings.Repeat(`, ?`, len(mealTypes)-1) + `)`)
		for _, mt := range mealTypes {
			args = append(args, string(mt))
		}
	}
	query.WriteString(` ORDER BY mp.date, mp.meal_type, mp.id`)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query meal plans: %w", err)
	}
	defer rows.Close()

	var entries []grocery.MealPlanEntry
	for rows.Next() {
		var e grocery.MealPlanEntry
		var date, mealType string
		if err := rows.Scan(&e.ID, &e.UserID, &e.RecipeID, &e.RecipeTitle, &date, &mealType, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan meal plan: %w", err)
		}
		if e.Date, err = time.Parse(common.DateLayout, date); err != nil {
			return nil, fmt.Errorf("meal plan %d has malformed date %q: %w", e.ID, date, err)
		}
		e.MealType = grocery.MealType(mealType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal plans: %w", err)
	}
	return entries, nil
}

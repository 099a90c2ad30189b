package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateIngredient(ctx context.Context, in Ingredient) (int64, error)
	GetIngredient(ctx context.Context, id int64) (Ingredient, error)
	ListIngredients(ctx context.Context, activeOnly bool) ([]Ingredient, error)
	DeactivateIngredient(ctx context.Context, id int64) error

	CreateDish(ctx context.Context, d Dish) (int64, error)
	GetDish(ctx context.Context, id int64) (Dish, error)
	ListDishes(ctx context.Context) ([]Dish, error)

	CreateProtein(ctx context.Context, p Protein) (int64, error)
	ListProteins(ctx context.Context) ([]Protein, error)

	CreateProduct(ctx context.Context, p Product) (int64, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)

	GetRecipe(ctx context.Context, dishID int64) ([]RecipeLine, error)
	ReplaceRecipe(ctx context.Context, dishID int64, lines []RecipeLineInput) error
}

// Recoster schedules a dish-cost recalculation after recipe changes.
type Recoster interface {
	EnqueueRecost(ctx context.Context) error
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	recoster Recoster
	logger   *slog.Logger
}

// NewService builds Service. recoster may be nil when no queue is wired.
func NewService(repo RepositoryPort, recoster Recoster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recoster: recoster, logger: logger}
}

func (s *Service) CreateIngredient(ctx context.Context, in Ingredient) (Ingredient, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.SpoilagePct.IsNegative() {
		in.SpoilagePct = decimal.Zero
	}
	id, err := s.repo.CreateIngredient(ctx, in)
	if err != nil {
		return Ingredient{}, err
	}
	return s.repo.GetIngredient(ctx, id)
}

func (s *Service) ListIngredients(ctx context.Context, activeOnly bool) ([]Ingredient, error) {
	return s.repo.ListIngredients(ctx, activeOnly)
}

func (s *Service) DeactivateIngredient(ctx context.Context, id int64) error {
	return s.repo.DeactivateIngredient(ctx, id)
}

func (s *Service) CreateDish(ctx context.Context, d Dish) (Dish, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.ProteinQty.IsNegative() {
		d.ProteinQty = decimal.Zero
	}
	id, err := s.repo.CreateDish(ctx, d)
	if err != nil {
		return Dish{}, err
	}
	return s.repo.GetDish(ctx, id)
}

func (s *Service) GetDish(ctx context.Context, id int64) (Dish, error) {
	return s.repo.GetDish(ctx, id)
}

func (s *Service) ListDishes(ctx context.Context) ([]Dish, error) {
	return s.repo.ListDishes(ctx)
}

func (s *Service) CreateProtein(ctx context.Context, p Protein) (Protein, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.IngredientID != nil {
		if _, err := s.repo.GetIngredient(ctx, *p.IngredientID); err != nil {
			return Protein{}, err
		}
	}
	id, err := s.repo.CreateProtein(ctx, p)
	if err != nil {
		return Protein{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Service) ListProteins(ctx context.Context) ([]Protein, error) {
	return s.repo.ListProteins(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.DishID != nil {
		if _, err := s.repo.GetDish(ctx, *p.DishID); err != nil {
			return Product{}, err
		}
	}
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	p.ID = id
	p.Active = true
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

func (s *Service) GetRecipe(ctx context.Context, dishID int64) ([]RecipeLine, error) {
	if _, err := s.repo.GetDish(ctx, dishID); err != nil {
		return nil, err
	}
	return s.repo.GetRecipe(ctx, dishID)
}

// SaveRecipe replaces a dish's recipe. Lines with non-positive quantities are
// dropped; saving with no valid lines at all is rejected.
func (s *Service) SaveRecipe(ctx context.Context, dishID int64, lines []RecipeLineInput) error {
	if _, err := s.repo.GetDish(ctx, dishID); err != nil {
		return err
	}
	valid := make([]RecipeLineInput, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if line.IngredientID <= 0 || !line.Qty.IsPositive() || seen[line.IngredientID] {
			continue
		}
		seen[line.IngredientID] = true
		valid = append(valid, line)
	}
	if len(valid) == 0 {
		return ErrEmptyRecipe
	}
	if err := s.repo.ReplaceRecipe(ctx, dishID, valid); err != nil {
		return err
	}
	if s.recoster != nil {
		if err := s.recoster.EnqueueRecost(ctx); err != nil {
			s.logger.Warn("enqueue recost after recipe save", slog.Any("error", err))
		}
	}
	return nil
}

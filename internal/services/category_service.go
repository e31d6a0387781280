package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/storage"
)

// pathSeparator joins category names in full_path, e.g. "Mobilität:Tanken".
const pathSeparator = ":"

// CategoryInput is the payload of a category create.
type CategoryInput struct {
	Name          string
	ParentID      *int64
	Color         string
	Icon          string
	BudgetMonthly *decimal.Decimal
}

// CategoryPatch is a partial category update. A ParentID of 0 moves the
// category to the top level.
type CategoryPatch struct {
	Name          *string
	ParentID      *int64
	Color         *string
	Icon          *string
	BudgetMonthly *decimal.Decimal
	ClearBudget   bool
}

// CategoryService manages the two-level category tree.
type CategoryService struct {
	storage *storage.SQLiteRepository
}

func NewCategoryService(storage *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{storage: storage}
}

// Flat lists all categories ordered by full path.
func (s *CategoryService) Flat(ctx context.Context) ([]core.Category, error) {
	cats, err := s.storage.Queries().ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

// Tree lists the top-level categories with their children nested.
func (s *CategoryService) Tree(ctx context.Context) ([]core.Category, error) {
	cats, err := s.Flat(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(cats), nil
}

func buildTree(cats []core.Category) []core.Category {
	children := make(map[int64][]core.Category)
	for _, c := range cats {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}
	tree := []core.Category{}
	for _, c := range cats {
		if c.ParentID == nil {
			c.Children = children[c.ID]
			tree = append(tree, c)
		}
	}
	return tree
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.storage.Queries().GetCategory(ctx, id)
}

// Create adds a category. Names are unique among siblings and the tree is at
// most two levels deep.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (core.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Category{}, core.Invalid("name", "must not be empty")
	}
	if strings.Contains(name, pathSeparator) {
		return core.Category{}, core.Invalid("name", "must not contain %q", pathSeparator)
	}
	if in.ParentID != nil && *in.ParentID == 0 {
		in.ParentID = nil
	}

	var created core.Category
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		taken, err := q.CategoryNameTaken(ctx, name, in.ParentID, 0)
		if err != nil {
			return err
		}
		if taken {
			return core.Invalid("name", "a category named %q already exists", name)
		}

		c := core.Category{
			Name:          name,
			ParentID:      in.ParentID,
			FullPath:      name,
			Color:         in.Color,
			Icon:          in.Icon,
			BudgetMonthly: in.BudgetMonthly,
		}
		if in.ParentID != nil {
			parent, err := loadParent(ctx, q, *in.ParentID)
			if err != nil {
				return err
			}
			c.FullPath = parent.FullPath + pathSeparator + name
		}
		created, err = q.CreateCategory(ctx, c)
		return err
	})
	if err != nil {
		return core.Category{}, err
	}
	return created, nil
}

// loadParent returns the category that is to become a parent. It must exist
// and be top-level.
func loadParent(ctx context.Context, q *storage.Queries, id int64) (core.Category, error) {
	parent, err := q.GetCategory(ctx, id)
	if isNotFound(err) {
		return core.Category{}, core.Invalid("parent_id", "parent category %d does not exist", id)
	}
	if err != nil {
		return core.Category{}, err
	}
	if parent.ParentID != nil {
		return core.Category{}, core.Invalid("parent_id", "categories can only be nested two levels deep")
	}
	return parent, nil
}

// Update applies p and recomputes the full path of the category and its
// children.
func (s *CategoryService) Update(ctx context.Context, id int64, p CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		c, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		if p.ParentID != nil {
			newParent := *p.ParentID
			switch {
			case newParent == id:
				return core.Invalid("parent_id", "a category cannot be its own parent")
			case newParent == 0:
				c.ParentID = nil
			default:
				children, err := q.ListChildCategories(ctx, id)
				if err != nil {
					return err
				}
				for _, child := range children {
					if child.ID == newParent {
						return core.Invalid("parent_id", "circular reference")
					}
				}
				if len(children) > 0 {
					return core.Invalid("parent_id", "categories can only be nested two levels deep")
				}
				if _, err := loadParent(ctx, q, newParent); err != nil {
					return err
				}
				c.ParentID = &newParent
			}
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return core.Invalid("name", "must not be empty")
			}
			if strings.Contains(name, pathSeparator) {
				return core.Invalid("name", "must not contain %q", pathSeparator)
			}
			c.Name = name
		}
		if p.Name != nil || p.ParentID != nil {
			taken, err := q.CategoryNameTaken(ctx, c.Name, c.ParentID, id)
			if err != nil {
				return err
			}
			if taken {
				return core.Invalid("name", "a category named %q already exists", c.Name)
			}
		}
		if p.Color != nil {
			c.Color = *p.Color
		}
		if p.Icon != nil {
			c.Icon = *p.Icon
		}
		if p.BudgetMonthly != nil {
			c.BudgetMonthly = p.BudgetMonthly
		}
		if p.ClearBudget {
			c.BudgetMonthly = nil
		}

		if err := q.UpdateCategory(ctx, c); err != nil {
			return err
		}
		if err := refreshPaths(ctx, q, id); err != nil {
			return fmt.Errorf("update full paths: %w", err)
		}
		updated, err = q.GetCategory(ctx, id)
		return err
	})
	if err != nil {
		return core.Category{}, err
	}
	return updated, nil
}

// refreshPaths recomputes full_path for id and, recursively, its children.
func refreshPaths(ctx context.Context, q *storage.Queries, id int64) error {
	c, err := q.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	path := c.Name
	if c.ParentID != nil {
		parent, err := q.GetCategory(ctx, *c.ParentID)
		if err != nil {
			return err
		}
		path = parent.FullPath + pathSeparator + c.Name
	}
	if err := q.UpdateCategoryPath(ctx, id, path); err != nil {
		return err
	}

	children, err := q.ListChildCategories(ctx, id)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := refreshPaths(ctx, q, child.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a category without children. Its transactions move to
// moveTo, or become uncategorized when moveTo is nil; rules assigning the
// category are deleted with it.
func (s *CategoryService) Delete(ctx context.Context, id int64, moveTo *int64) error {
	if moveTo != nil && *moveTo == 0 {
		moveTo = nil
	}
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, id); err != nil {
			return err
		}
		children, err := q.CountChildCategories(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return core.Invalid("", "category has subcategories, delete or move them first")
		}
		if moveTo != nil {
			if *moveTo == id {
				return core.Invalid("move_to_category_id", "cannot move transactions to the deleted category")
			}
			if err := requireCategory(ctx, q, "move_to_category_id", *moveTo); err != nil {
				return err
			}
		}

		moved, err := q.ReassignCategory(ctx, id, moveTo)
		if err != nil {
			return fmt.Errorf("reassign transactions: %w", err)
		}
		removed, err := q.DeleteRulesForCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
		if err := q.DeleteCategory(ctx, id); err != nil {
			return err
		}

		slog.InfoContext(ctx, "Deleted category",
			"category_id", id,
			"transactions_moved", moved,
			"rules_deleted", removed)
		return nil
	})
}

// InitDefaults seeds the default German category tree when no category
// exists yet. It returns the number of categories afterwards and whether it
// created them.
func (s *CategoryService) InitDefaults(ctx context.Context) (int64, bool, error) {
	var (
		count   int64
		created bool
	)
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.CountCategories(ctx)
		if err != nil {
			return err
		}
		if existing > 0 {
			count = existing
			return nil
		}

		for _, group := range defaultCategories {
			parent, err := q.CreateCategory(ctx, core.Category{
				Name:     group.name,
				FullPath: group.name,
				Color:    group.color,
			})
			if err != nil {
				return fmt.Errorf("create %s: %w", group.name, err)
			}
			count++
			for _, child := range group.children {
				_, err := q.CreateCategory(ctx, core.Category{
					Name:     child.name,
					ParentID: &parent.ID,
					FullPath: group.name + pathSeparator + child.name,
					Color:    child.color,
				})
				if err != nil {
					return fmt.Errorf("create %s: %w", child.name, err)
				}
				count++
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if created {
		slog.InfoContext(ctx, "Created default categories", "count", count)
	}
	return count, created, nil
}

type defaultCategory struct {
	name, color string
	children    []defaultCategory
}

var defaultCategories = []defaultCategory{
	{name: "Einnahmen", color: "#4CAF50", children: []defaultCategory{
		{name: "Gehalt", color: "#66BB6A"},
		{name: "Kindergeld", color: "#81C784"},
		{name: "Erstattungen", color: "#A5D6A7"},
		{name: "Sonstige Einnahmen", color: "#C8E6C9"},
	}},
	{name: "Wohnen", color: "#2196F3", children: []defaultCategory{
		{name: "Miete", color: "#42A5F5"},
		{name: "Strom", color: "#64B5F6"},
		{name: "Gas", color: "#90CAF9"},
		{name: "Internet", color: "#BBDEFB"},
		{name: "Einrichtung", color: "#E3F2FD"},
	}},
	{name: "Mobilität", color: "#FF9800", children: []defaultCategory{
		{name: "Tanken", color: "#FFA726"},
		{name: "Laden (E-Auto)", color: "#FFB74D"},
		{name: "Versicherung (Auto)", color: "#FFCC80"},
		{name: "Wartung", color: "#FFE0B2"},
		{name: "ÖPNV", color: "#FFF3E0"},
	}},
	{name: "Lebensmittel", color: "#8BC34A", children: []defaultCategory{
		{name: "Supermarkt", color: "#9CCC65"},
		{name: "Bäckerei", color: "#AED581"},
		{name: "Restaurant", color: "#C5E1A5"},
	}},
	{name: "Freizeit", color: "#E91E63", children: []defaultCategory{
		{name: "Technik", color: "#EC407A"},
		{name: "Bücher", color: "#F06292"},
		{name: "Gaming", color: "#F48FB1"},
		{name: "Streaming", color: "#F8BBD9"},
		{name: "Ausgehen", color: "#FCE4EC"},
	}},
	{name: "Finanzen", color: "#9C27B0", children: []defaultCategory{
		{name: "Sparen", color: "#AB47BC"},
		{name: "Investment", color: "#BA68C8"},
		{name: "Versicherung", color: "#CE93D8"},
		{name: "Bausparen", color: "#E1BEE7"},
	}},
	{name: "Abos & Verträge", color: "#00BCD4", children: []defaultCategory{
		{name: "Mobilfunk", color: "#26C6DA"},
		{name: "Software", color: "#4DD0E1"},
	}},
	{name: "Sonstiges", color: "#607D8B", children: []defaultCategory{
		{name: "Unkategorisiert", color: "#78909C"},
	}},
}

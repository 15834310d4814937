package model

import (
	"time"

	"github.com/google/uuid"
)

// Category is leaf reference data. Transactions hold a weak reference to it:
// a dangling CategoryID degrades to "uncategorized" at display time, never to
// an error.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      string       `json:"icon"`
	Color     string       `json:"color"`
	Order     int          `json:"order"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CategoryInput carries caller-supplied fields for a new category.
type CategoryInput struct {
	ID    string
	Name  string
	Type  CategoryType
	Icon  string
	Color string
	Order int
}

// NewCategory builds a category, defaulting to an expense category with the
// stock tag icon.
func NewCategory(in CategoryInput, now time.Time) Category {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Type == "" {
		in.Type = CategoryExpense
	}
	if in.Icon == "" {
		in.Icon = "tag"
	}
	if in.Color == "" {
		in.Color = "#4CAF50"
	}
	return Category{
		ID:        in.ID,
		Name:      in.Name,
		Type:      in.Type,
		Icon:      in.Icon,
		Color:     in.Color,
		Order:     in.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CategoryPatch is a partial update; nil fields are left unchanged.
type CategoryPatch struct {
	Name  *string
	Type  *CategoryType
	Icon  *string
	Color *string
	Order *int
}

// Apply merges the patch into a copy of the category and restamps UpdatedAt.
func (c Category) Apply(p CategoryPatch, now time.Time) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Order != nil {
		c.Order = *p.Order
	}
	c.UpdatedAt = now
	return c
}

// EntityID implements the merge key.
func (c Category) EntityID() string { return c.ID }

// LastUpdated implements the merge ordering key.
func (c Category) LastUpdated() time.Time { return c.UpdatedAt }

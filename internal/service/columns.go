package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// ColumnPatch renames and/or retypes a column.
type ColumnPatch struct {
	Name *string
	Type *models.ColumnType
}

// ColumnService manages the per-owner custom column registry. Orders stay
// dense (0..N-1) after every operation.
type ColumnService struct {
	deps  Deps
	files *FileService
}

func ownerOfColumn(c *models.CustomColumn) uint { return c.UserID }

// List returns owner's columns by order.
func (s *ColumnService) List(ctx context.Context, owner uint) ([]models.CustomColumn, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return listColumns(s.deps.DB.WithContext(ctx), owner)
}

func listColumns(tx *gorm.DB, owner uint) ([]models.CustomColumn, error) {
	var cols []models.CustomColumn
	if err := tx.Where("user_id = ?", owner).Order("sort_order ASC, created_at ASC").Find(&cols).Error; err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return cols, nil
}

// Add appends a column after the last one.
func (s *ColumnService) Add(ctx context.Context, owner uint, name string, typ models.ColumnType) (*models.CustomColumn, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := util.ValidateColumnName(name); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, util.Invalid("unknown column type %q", typ)
	}

	col := models.CustomColumn{
		ID:     uuid.NewString(),
		UserID: owner,
		Name:   name,
		Type:   typ,
	}
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder sql.NullInt64
		if err := tx.Model(&models.CustomColumn{}).
			Where("user_id = ?", owner).
			Select("MAX(sort_order)").
			Row().Scan(&maxOrder); err != nil {
			return fmt.Errorf("read max order: %w", err)
		}
		if maxOrder.Valid {
			col.Order = int(maxOrder.Int64) + 1
		}
		return tx.Create(&col).Error
	})
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// Update renames or retypes a column. On a type change every value that no
// longer matches is removed from owner's trades, and images held by such
// values are deleted after commit.
func (s *ColumnService) Update(ctx context.Context, owner uint, id string, p ColumnPatch) (*models.CustomColumn, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var (
		col     models.CustomColumn
		removed []models.StoredFile
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, &col, id, owner, ownerOfColumn, "column"); err != nil {
			return err
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if err := util.ValidateColumnName(name); err != nil {
				return err
			}
			col.Name = name
		}
		if p.Type != nil && *p.Type != col.Type {
			if !p.Type.Valid() {
				return util.Invalid("unknown column type %q", *p.Type)
			}
			newType := *p.Type
			refs, err := rewriteColumnValues(tx, owner, col.ID, func(v models.CustomValue) bool {
				return v.Type == newType
			})
			if err != nil {
				return err
			}
			if removed, err = s.files.releaseRecords(tx, owner, refs); err != nil {
				return err
			}
			col.Type = newType
		}
		return tx.Save(&col).Error
	})
	if err != nil {
		return nil, err
	}
	s.files.RemoveBlobs(removed)
	return &col, nil
}

// Reorder sets order = position in ids. ids must be exactly owner's
// column set.
func (s *ColumnService) Reorder(ctx context.Context, owner uint, ids []string) ([]models.CustomColumn, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var cols []models.CustomColumn
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := listColumns(tx, owner)
		if err != nil {
			return err
		}
		if len(ids) != len(current) {
			return util.Invalid("reorder needs all %d columns, got %d", len(current), len(ids))
		}
		known := make(map[string]bool, len(current))
		for _, c := range current {
			known[c.ID] = true
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if !known[id] || seen[id] {
				return util.Invalid("reorder ids must be the column set, bad id %q", id)
			}
			seen[id] = true
		}
		for i, id := range ids {
			if err := tx.Model(&models.CustomColumn{}).
				Where("id = ? AND user_id = ?", id, owner).
				Update("sort_order", i).Error; err != nil {
				return fmt.Errorf("update order: %w", err)
			}
		}
		cols, err = listColumns(tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// Delete removes a column, strips its key from every trade and renumbers
// the remaining columns by their prior order. Images held by the column
// are deleted after commit.
func (s *ColumnService) Delete(ctx context.Context, owner uint, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	var removed []models.StoredFile
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col models.CustomColumn
		if err := findOwned(tx, &col, id, owner, ownerOfColumn, "column"); err != nil {
			return err
		}
		if err := tx.Delete(&col).Error; err != nil {
			return fmt.Errorf("delete column: %w", err)
		}
		refs, err := rewriteColumnValues(tx, owner, col.ID, func(models.CustomValue) bool { return false })
		if err != nil {
			return err
		}
		if removed, err = s.files.releaseRecords(tx, owner, refs); err != nil {
			return err
		}
		return renumber(tx, owner)
	})
	if err != nil {
		return err
	}
	s.files.RemoveBlobs(removed)
	return nil
}

// rewriteColumnValues drops the value of column key from every trade of
// owner where keep returns false. It returns the image refs of dropped
// values.
func rewriteColumnValues(tx *gorm.DB, owner uint, key string, keep func(models.CustomValue) bool) ([]string, error) {
	var trades []models.Trade
	if err := tx.Select("id", "custom_data").Where("user_id = ?", owner).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	var refs []string
	for i := range trades {
		data := trades[i].CustomData.Data()
		v, ok := data[key]
		if !ok || keep(v) {
			continue
		}
		if v.Type == models.ColumnImage && v.FileRef != "" {
			refs = append(refs, v.FileRef)
		}
		next := data.Clone()
		delete(next, key)
		if err := tx.Model(&models.Trade{}).
			Where("id = ?", trades[i].ID).
			Update("custom_data", datatypes.NewJSONType(next)).Error; err != nil {
			return nil, fmt.Errorf("rewrite trade %d: %w", trades[i].ID, err)
		}
	}
	return refs, nil
}

func renumber(tx *gorm.DB, owner uint) error {
	cols, err := listColumns(tx, owner)
	if err != nil {
		return err
	}
	for i := range cols {
		if cols[i].Order == i {
			continue
		}
		if err := tx.Model(&models.CustomColumn{}).
			Where("id = ?", cols[i].ID).
			Update("sort_order", i).Error; err != nil {
			return fmt.Errorf("renumber column: %w", err)
		}
	}
	return nil
}

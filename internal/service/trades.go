package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// TradeInput carries the fields of a new trade. Direction defaults to long.
type TradeInput struct {
	Ticker     string
	Date       string
	Time       string
	Direction  string
	ProfitLoss decimal.Decimal
	Note       string
	CustomData models.CustomData
}

// TradePatch updates only the non-nil fields. A non-nil CustomData
// replaces the whole map.
type TradePatch struct {
	Ticker     *string
	Date       *string
	Time       *string
	Direction  *string
	ProfitLoss *decimal.Decimal
	Note       *string
	CustomData *models.CustomData
}

// TradeQuery selects trades for listing. Date wins over Range.
type TradeQuery struct {
	Date     string
	Range    analytics.DateRange
	Page     int
	PageSize int
}

type TradeService struct {
	deps  Deps
	files *FileService
}

func ownerOfTrade(t *models.Trade) uint { return t.UserID }

// ListForOwner returns every trade of owner, newest created first.
func (s *TradeService) ListForOwner(ctx context.Context, owner uint) ([]models.Trade, error) {
	trades, _, err := s.Query(ctx, owner, TradeQuery{})
	return trades, err
}

func (s *TradeService) ListForOwnerAndDate(ctx context.Context, owner uint, date string) ([]models.Trade, error) {
	if err := util.ValidateDate(date); err != nil {
		return nil, err
	}
	trades, _, err := s.Query(ctx, owner, TradeQuery{Date: date})
	return trades, err
}

// ListInRange returns trades with date in r (inclusive, open bounds allowed).
func (s *TradeService) ListInRange(ctx context.Context, owner uint, r analytics.DateRange) ([]models.Trade, error) {
	trades, _, err := s.Query(ctx, owner, TradeQuery{Range: r})
	return trades, err
}

// Query lists trades newest created first. Page and PageSize are optional;
// total counts every match regardless of paging.
func (s *TradeService) Query(ctx context.Context, owner uint, q TradeQuery) ([]models.Trade, int64, error) {
	if err := requireOwner(owner); err != nil {
		return nil, 0, err
	}
	base := s.deps.DB.WithContext(ctx).Model(&models.Trade{}).Where("user_id = ?", owner)
	switch {
	case q.Date != "":
		base = base.Where("date = ?", q.Date)
	default:
		if q.Range.Start != "" {
			base = base.Where("date >= ?", q.Range.Start)
		}
		if q.Range.End != "" {
			base = base.Where("date <= ?", q.Range.End)
		}
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count trades: %w", err)
	}

	list := base.Session(&gorm.Session{}).Order("created_at DESC, id DESC")
	if q.PageSize > 0 {
		page := q.Page
		if page <= 0 {
			page = 1
		}
		list = list.Limit(q.PageSize).Offset((page - 1) * q.PageSize)
	}
	var trades []models.Trade
	if err := list.Find(&trades).Error; err != nil {
		return nil, 0, fmt.Errorf("list trades: %w", err)
	}
	for i := range trades {
		s.decrypt(&trades[i])
	}
	return trades, total, nil
}

func (s *TradeService) Get(ctx context.Context, owner uint, id uint) (*models.Trade, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var t models.Trade
	if err := findOwned(s.deps.DB.WithContext(ctx), &t, id, owner, ownerOfTrade, "trade"); err != nil {
		return nil, err
	}
	s.decrypt(&t)
	return &t, nil
}

// Insert validates and stores a new trade.
func (s *TradeService) Insert(ctx context.Context, owner uint, in TradeInput) (*models.Trade, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	t := models.Trade{
		UserID:     owner,
		Ticker:     in.Ticker,
		Date:       in.Date,
		Time:       in.Time,
		Direction:  in.Direction,
		ProfitLoss: in.ProfitLoss,
	}
	if t.Direction == "" {
		t.Direction = models.DirectionLong
	}
	if err := normalizeTrade(&t); err != nil {
		return nil, err
	}
	note, err := s.deps.Cipher.EncryptString(in.Note)
	if err != nil {
		return nil, fmt.Errorf("encrypt note: %w", err)
	}
	t.Note = note
	data := in.CustomData
	if data == nil {
		data = models.CustomData{}
	}
	t.CustomData = datatypes.NewJSONType(data)

	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateCustomData(tx, s.files, owner, data); err != nil {
			return err
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		return nil, err
	}
	t.Note = in.Note
	return &t, nil
}

// Patch applies p to trade id. Images dropped from the custom data and no
// longer used by another trade are deleted once the update commits.
func (s *TradeService) Patch(ctx context.Context, owner uint, id uint, p TradePatch) (*models.Trade, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var (
		t       models.Trade
		dropped []string
		removed []models.StoredFile
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, &t, id, owner, ownerOfTrade, "trade"); err != nil {
			return err
		}
		if p.Ticker != nil {
			t.Ticker = *p.Ticker
		}
		if p.Date != nil {
			t.Date = *p.Date
		}
		if p.Time != nil {
			t.Time = *p.Time
		}
		if p.Direction != nil {
			t.Direction = *p.Direction
		}
		if p.ProfitLoss != nil {
			t.ProfitLoss = *p.ProfitLoss
		}
		if err := normalizeTrade(&t); err != nil {
			return err
		}
		if p.Note != nil {
			note, err := s.deps.Cipher.EncryptString(*p.Note)
			if err != nil {
				return fmt.Errorf("encrypt note: %w", err)
			}
			t.Note = note
		}
		if p.CustomData != nil {
			next := *p.CustomData
			if next == nil {
				next = models.CustomData{}
			}
			if err := validateCustomData(tx, s.files, owner, next); err != nil {
				return err
			}
			dropped = subtract(t.CustomData.Data().ImageRefs(), next.ImageRefs())
			t.CustomData = datatypes.NewJSONType(next)
		}
		if err := tx.Save(&t).Error; err != nil {
			return err
		}
		var err error
		removed, err = s.files.releaseRecords(tx, owner, dropped)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.files.RemoveBlobs(removed)
	s.decrypt(&t)
	return &t, nil
}

// Delete removes trade id together with the images only it references.
func (s *TradeService) Delete(ctx context.Context, owner uint, id uint) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	var removed []models.StoredFile
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Trade
		if err := findOwned(tx, &t, id, owner, ownerOfTrade, "trade"); err != nil {
			return err
		}
		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("delete trade: %w", err)
		}
		var err error
		removed, err = s.files.releaseRecords(tx, owner, t.CustomData.Data().ImageRefs())
		return err
	})
	if err != nil {
		return err
	}
	s.files.RemoveBlobs(removed)
	return nil
}

func (s *TradeService) decrypt(t *models.Trade) {
	t.Note = s.deps.Cipher.DecryptString(t.Note)
}

func normalizeTrade(t *models.Trade) error {
	ticker, err := util.NormalizeTicker(t.Ticker)
	if err != nil {
		return err
	}
	t.Ticker = ticker
	if err := util.ValidateDate(t.Date); err != nil {
		return err
	}
	if err := util.ValidateTime(t.Time); err != nil {
		return err
	}
	if err := util.ValidateDirection(t.Direction); err != nil {
		return err
	}
	if _, err := util.ParseAmount(t.ProfitLoss.String()); err != nil {
		return err
	}
	return nil
}

// validateCustomData checks every key against owner's columns and every
// image against owner's files.
func validateCustomData(tx *gorm.DB, files *FileService, owner uint, data models.CustomData) error {
	if len(data) == 0 {
		return nil
	}
	var cols []models.CustomColumn
	if err := tx.Where("user_id = ?", owner).Find(&cols).Error; err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	types := make(map[string]models.ColumnType, len(cols))
	for _, c := range cols {
		types[c.ID] = c.Type
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		want, ok := types[k]
		if !ok {
			return util.Invalid("unknown custom column %q", k)
		}
		if got := data[k].Type; got != want {
			return util.Invalid("custom column %q expects %s, got %s", k, want, got)
		}
	}
	return files.checkOwned(tx, owner, data.ImageRefs())
}

// subtract returns the elements of a missing from b.
func subtract(a, b []string) []string {
	keep := make(map[string]struct{}, len(b))
	for _, s := range b {
		keep[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := keep[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

var (
	DefaultStartingBalance = decimal.NewFromInt(10000)
	DefaultRiskPercentage  = decimal.NewFromInt(1)
)

// PortfolioView is the stored settings plus derived figures.
type PortfolioView struct {
	StartingBalance decimal.Decimal `json:"starting_balance"`
	RiskPercentage  decimal.Decimal `json:"risk_percentage"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	RiskAmount      decimal.Decimal `json:"risk_amount"`
	// Saved is false while the defaults are in effect.
	Saved bool `json:"saved"`
}

type PortfolioPatch struct {
	StartingBalance *decimal.Decimal
	RiskPercentage  *decimal.Decimal
}

type PortfolioService struct {
	deps Deps
}

// Get returns owner's portfolio, falling back to the defaults.
func (s *PortfolioService) Get(ctx context.Context, owner uint) (*PortfolioView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	db := s.deps.DB.WithContext(ctx)
	p, saved, err := loadPortfolio(db, owner)
	if err != nil {
		return nil, err
	}
	total, err := sumPnL(db, owner)
	if err != nil {
		return nil, err
	}
	current := p.StartingBalance.Add(total)
	return &PortfolioView{
		StartingBalance: p.StartingBalance,
		RiskPercentage:  p.RiskPercentage,
		TotalPnL:        total,
		CurrentBalance:  current,
		RiskAmount:      current.Mul(p.RiskPercentage).Div(decimal.NewFromInt(100)).Round(2),
		Saved:           saved,
	}, nil
}

// StartingBalance is the base for balance series and return %.
func (s *PortfolioService) StartingBalance(ctx context.Context, owner uint) (decimal.Decimal, error) {
	if err := requireOwner(owner); err != nil {
		return decimal.Zero, err
	}
	p, _, err := loadPortfolio(s.deps.DB.WithContext(ctx), owner)
	if err != nil {
		return decimal.Zero, err
	}
	return p.StartingBalance, nil
}

// Upsert saves the given fields; missing ones keep their current or default
// value.
func (s *PortfolioService) Upsert(ctx context.Context, owner uint, patch PortfolioPatch) (*PortfolioView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if patch.StartingBalance != nil {
		if _, err := util.ParseAmount(patch.StartingBalance.String()); err != nil {
			return nil, err
		}
		if patch.StartingBalance.IsNegative() {
			return nil, util.Invalid("starting balance must not be negative")
		}
	}
	if patch.RiskPercentage != nil {
		if err := util.ValidatePercentage(*patch.RiskPercentage); err != nil {
			return nil, err
		}
	}

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, _, err := loadPortfolio(tx, owner)
		if err != nil {
			return err
		}
		if patch.StartingBalance != nil {
			p.StartingBalance = *patch.StartingBalance
		}
		if patch.RiskPercentage != nil {
			p.RiskPercentage = *patch.RiskPercentage
		}
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func loadPortfolio(tx *gorm.DB, owner uint) (*models.Portfolio, bool, error) {
	var p models.Portfolio
	err := tx.Where("user_id = ?", owner).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Portfolio{
			UserID:          owner,
			StartingBalance: DefaultStartingBalance,
			RiskPercentage:  DefaultRiskPercentage,
		}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load portfolio: %w", err)
	}
	return &p, true, nil
}

func sumPnL(tx *gorm.DB, owner uint) (decimal.Decimal, error) {
	var trades []models.Trade
	if err := tx.Select("profit_loss").Where("user_id = ?", owner).Find(&trades).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum trades: %w", err)
	}
	return analytics.TotalPnL(trades), nil
}

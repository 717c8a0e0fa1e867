// Package pricing derives exchange prices from a card's base price and its
// popularity signals. The bonus curve is a configured policy, not a fixed
// algorithm: operators tune the constants without touching the orchestrator.
package pricing

import "github.com/Laimiu-debug/lifecard-exchange/internal/config"

// Quote breaks a computed price into its parts
type Quote struct {
	BasePrice       int64 `json:"base_price"`
	PopularityBonus int64 `json:"popularity_bonus"`
	FinalPrice      int64 `json:"final_price"`
}

// Calculator computes exchange prices. Pure: no state beyond the policy
// constants, no side effects.
type Calculator struct {
	likesPerCoin     int64
	perExchangeBonus int64
	maxBonus         int64
}

func NewCalculator(cfg *config.PricingConfig) *Calculator {
	return &Calculator{
		likesPerCoin:     cfg.LikesPerCoin,
		perExchangeBonus: cfg.PerExchangeBonus,
		maxBonus:         cfg.MaxBonus,
	}
}

// Price returns the exchange price for a card. The popularity bonus grows
// monotonically with likes and completed exchanges and is capped so heavily
// traded cards cannot price themselves out of reach.
func (c *Calculator) Price(basePrice, likeCount, exchangeCount int64) Quote {
	bonus := likeCount/c.likesPerCoin + exchangeCount*c.perExchangeBonus
	if bonus > c.maxBonus {
		bonus = c.maxBonus
	}

	return Quote{
		BasePrice:       basePrice,
		PopularityBonus: bonus,
		FinalPrice:      basePrice + bonus,
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Market post categories. The market_posts table enforces the same set.
const (
	MarketCategoryBuy     = "buy"
	MarketCategorySell    = "sell"
	MarketCategoryRent    = "rent"
	MarketCategoryGeneral = "general"
)

// MarketCategories lists the categories in display order.
var MarketCategories = []string{
	MarketCategoryBuy,
	MarketCategorySell,
	MarketCategoryRent,
	MarketCategoryGeneral,
}

var marketCategoryLabels = map[string]string{
	MarketCategoryBuy:     "Buy",
	MarketCategorySell:    "Sell",
	MarketCategoryRent:    "Rent",
	MarketCategoryGeneral: "General",
}

// ErrInvalidPrice is returned by ParsePrice for non-numeric or negative input.
var ErrInvalidPrice = errors.New("price must be a non-negative number")

// IsValidMarketCategory reports whether c is one of the four market categories.
func IsValidMarketCategory(c string) bool {
	_, ok := marketCategoryLabels[c]
	return ok
}

// CategoryLabel returns a display label for a market or notice category.
func CategoryLabel(c string) string {
	if label, ok := marketCategoryLabels[c]; ok {
		return label
	}
	r, size := utf8.DecodeRuneInString(c)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + c[size:]
}

// CanEditMarketPost reports whether the user may edit or delete a post
// created by ownerID. Anonymous callers (userID 0) never can.
func CanEditMarketPost(userID int64, role string, ownerID int64) bool {
	if userID == 0 {
		return false
	}
	return IsAdmin(role) || userID == ownerID
}

// ParsePrice converts a form value to a nullable price. Blank input means
// no price.
func ParsePrice(s string) (sql.NullFloat64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}, ErrInvalidPrice
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

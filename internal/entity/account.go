package entity

import (
	"github.com/shopspring/decimal"
)

// User is keyed by lowercase hex account address.
type User struct {
	ID string `json:"id"`
}

func (u *User) Kind() Kind  { return KindUser }
func (u *User) Key() string { return u.ID }

func NewUser(id string) *User {
	return &User{ID: id}
}

// Asset is keyed by the decimal asset id. Its Decimals drive every
// collateral and token amount conversion.
type Asset struct {
	ID              string `json:"id"`
	Symbol          string `json:"symbol"`
	Decimals        uint32 `json:"decimal"`
	IsStable        bool   `json:"isStable"`
	TokenAddress    string `json:"tokenAddress"`
	MuxTokenAddress string `json:"muxTokenAddress"`
	Timestamp       int64  `json:"timestamp"`
}

func (a *Asset) Kind() Kind  { return KindAsset }
func (a *Asset) Key() string { return a.ID }

// NewAsset is the placeholder for an asset referenced before registration.
func NewAsset(id string) *Asset {
	return &Asset{
		ID:              id,
		TokenAddress:    AddressZero,
		MuxTokenAddress: AddressZero,
	}
}

// SubAccount aggregates the trades of one packed sub-account id.
type SubAccount struct {
	ID           string          `json:"id"`
	User         string          `json:"user"`
	CollateralID uint8           `json:"collateralId"`
	AssetID      uint8           `json:"assetId"`
	Size         decimal.Decimal `json:"size"`
	MarginUsed   decimal.Decimal `json:"marginUsed"`
	IsLong       bool            `json:"isLong"`
	CreatedAt    int64           `json:"createdAt"`
}

func (s *SubAccount) Kind() Kind  { return KindSubAccount }
func (s *SubAccount) Key() string { return s.ID }

func NewSubAccount(id, userID string, createdAt int64) *SubAccount {
	return &SubAccount{
		ID:         id,
		User:       userID,
		Size:       decimal.Zero,
		MarginUsed: decimal.Zero,
		CreatedAt:  createdAt,
	}
}

package event

import (
	"math/big"

	"PerpIndexer/internal/subaccount"
)

// FillingFlashTake opens a flash-take sequence inside a transaction.
type FillingFlashTake struct {
	Metadata
	FlashTakeSequence uint64
}

func (e *FillingFlashTake) EventType() EventType { return EventTypeFillingFlashTake }

// FillFlashTake resolves a flash take. Size carries the protocol exponent;
// collateral and gas fee the collateral asset's decimals.
type FillFlashTake struct {
	Metadata
	SubAccountID      subaccount.ID
	FlashTakeSequence uint64
	ProfitTokenID     uint8
	Size              *big.Int
	Collateral        *big.Int
	GasFee            *big.Int
	Flags             uint8
	ErrorMessage      string
}

func (e *FillFlashTake) EventType() EventType { return EventTypeFillFlashTake }

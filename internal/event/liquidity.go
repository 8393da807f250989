package event

import (
	"math/big"
)

// LiquidityChange is the payload of AddLiquidity and RemoveLiquidity.
// TokenPrice carries the token's decimals; the rest the protocol exponent.
type LiquidityChange struct {
	Trader     string
	TokenID    uint8
	TokenPrice *big.Int
	MlpPrice   *big.Int
	MlpAmount  *big.Int
	Fee        *big.Int
}

type AddLiquidity struct {
	Metadata
	LiquidityChange
}

func (e *AddLiquidity) EventType() EventType { return EventTypeAddLiquidity }

type RemoveLiquidity struct {
	Metadata
	LiquidityChange
}

func (e *RemoveLiquidity) EventType() EventType { return EventTypeRemoveLiquidity }

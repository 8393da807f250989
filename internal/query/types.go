package query

import "PerpIndexer/internal/entity"

// EntityResponse wraps one entity for API queries.
type EntityResponse struct {
	Kind      entity.Kind   `json:"kind"`
	ID        string        `json:"id"`
	Entity    entity.Record `json:"entity"`
	AsOfBlock uint64        `json:"as_of_block"`
}

// FundingResponse is the funding window containing a timestamp.
type FundingResponse struct {
	Symbol      string          `json:"symbol"`
	Timestamp   int64           `json:"timestamp"`
	WindowStart int64           `json:"window_start"`
	WindowEnd   int64           `json:"window_end"`
	Funding     *entity.Funding `json:"funding"`
	AsOfBlock   uint64          `json:"as_of_block"`
}

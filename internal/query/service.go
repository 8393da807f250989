package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PerpIndexer/internal/entity"
	fpmath "PerpIndexer/internal/math"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/repository"
	"PerpIndexer/internal/store"
)

var (
	// ErrUnknownKind is returned for a kind name that is not an entity table.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrInvalidArgument is returned for malformed ids or timestamps.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Watermark reports the last block applied by the core.
type Watermark func() uint64

// Service provides read-only access to derived entities. Absent records
// surface as store.ErrNotFound. All responses include as_of_block for
// freshness semantics.
type Service struct {
	repo      *repository.Repository
	watermark Watermark
	metrics   *observability.Metrics
}

// NewService creates a query service. watermark and metrics may be nil.
func NewService(repo *repository.Repository, watermark Watermark, metrics *observability.Metrics) *Service {
	return &Service{
		repo:      repo,
		watermark: watermark,
		metrics:   metrics,
	}
}

// GetEntity returns one entity by kind name and key. Hex keys are matched
// case-insensitively.
func (s *Service) GetEntity(ctx context.Context, kindName, id string) (resp *EntityResponse, err error) {
	defer s.observe("entity", time.Now(), &err)

	kind, ok := entity.ParseKind(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidArgument)
	}
	key := id
	if strings.HasPrefix(key, "0x") || strings.HasPrefix(key, "0X") {
		key = "0x" + strings.ToLower(key[2:])
	}

	asOf := s.asOf()
	rec, err := s.repo.Load(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	return &EntityResponse{
		Kind:      kind,
		ID:        rec.Key(),
		Entity:    rec,
		AsOfBlock: asOf,
	}, nil
}

// GetFunding returns the funding window of symbol that contains timestamp
// (unix seconds).
func (s *Service) GetFunding(ctx context.Context, symbol string, timestamp int64) (resp *FundingResponse, err error) {
	defer s.observe("funding", time.Now(), &err)

	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidArgument)
	}
	windowStart := fpmath.FundingWindowStart(timestamp)

	asOf := s.asOf()
	f, err := s.repo.LoadFunding(ctx, symbol, windowStart)
	if err != nil {
		return nil, err
	}
	return &FundingResponse{
		Symbol:      symbol,
		Timestamp:   timestamp,
		WindowStart: windowStart,
		WindowEnd:   windowStart + fpmath.FundingWindowSeconds,
		Funding:     f,
		AsOfBlock:   asOf,
	}, nil
}

// asOf must be sampled before the lookup.
func (s *Service) asOf() uint64 {
	if s.watermark == nil {
		return 0
	}
	return s.watermark()
}

func (s *Service) observe(endpoint string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, Status(*errp)).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Status classifies a query error for metrics and transport mapping.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnknownKind), errors.Is(err, ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

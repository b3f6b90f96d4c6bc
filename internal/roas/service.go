package roas

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	modeRecommend   = "recommend"
	modePlan        = "plan"
	modeManual      = "manual"
	modeBatch       = "batch"
	modeRecalculate = "recalculate"
)

type accessChecker interface {
	CheckAccess(ctx context.Context, userID uuid.UUID, slug string) (entitlements.Status, error)
}

// RecommendInput runs the engine directly on one product's figures.
type RecommendInput struct {
	ProductID string         `json:"product_id"`
	Name      string         `json:"name"`
	Spend     float64        `json:"spend" validate:"gte=0"`
	Revenue   float64        `json:"revenue" validate:"gte=0"`
	UnitsSold float64        `json:"units_sold" validate:"gte=0"`
	CTR       float64        `json:"ctr" validate:"gte=0"`
	UnitPrice float64        `json:"unit_price" validate:"gte=0"`
	Costs     *CostOverrides `json:"costs,omitempty"`
}

// RecommendResult pairs the normalized record with its verdict.
type RecommendResult struct {
	Record         ProductRecord  `json:"record"`
	Recommendation Recommendation `json:"recommendation"`
}

// Service exposes the calculator to authenticated users holding a live entitlement.
type Service interface {
	Recommend(ctx context.Context, userID uuid.UUID, input RecommendInput) (*RecommendResult, error)
	Plan(ctx context.Context, userID uuid.UUID, input PlanInput) (*PlanResult, error)
	AnalyzeManual(ctx context.Context, userID uuid.UUID, input ManualInput) (*ManualResult, error)
	AnalyzeBatch(ctx context.Context, userID uuid.UUID, export io.Reader) (*BatchResult, error)
	Recalculate(ctx context.Context, userID uuid.UUID, input RecalculateInput) (*RecalculateResult, error)
}

// ServiceParams groups the calculator dependencies.
type ServiceParams struct {
	Engine    *Engine
	Snapshots SnapshotStore
	Access    accessChecker
	AppSlug   string
	Metrics   *metrics.CalculatorMetrics
	Logger    *logger.Logger
}

type service struct {
	engine    *Engine
	analyzer  *Analyzer
	snapshots SnapshotStore
	access    accessChecker
	appSlug   string
	metrics   *metrics.CalculatorMetrics
	logg      *logger.Logger
}

// NewService builds the calculator service.
func NewService(params ServiceParams) (Service, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if params.Access == nil {
		return nil, fmt.Errorf("access checker required")
	}
	if params.AppSlug == "" {
		return nil, fmt.Errorf("app slug required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		engine:    params.Engine,
		analyzer:  NewAnalyzer(params.Engine),
		snapshots: params.Snapshots,
		access:    params.Access,
		appSlug:   params.AppSlug,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// authorize runs before any numeric work.
func (s *service) authorize(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.access.CheckAccess(ctx, userID, s.appSlug); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAccessExpired) {
			s.metrics.IncDenied()
			s.logg.Warn(s.logg.WithApp(ctx, s.appSlug), "calculator access denied: trial expired")
		}
		return err
	}
	return nil
}

func (s *service) Recommend(ctx context.Context, userID uuid.UUID, input RecommendInput) (res *RecommendResult, err error) {
	defer func() { s.metrics.ObserveRun(modeRecommend, err) }()
	if err = s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	rec := NormalizeManual(ManualFigures{
		ProductID: input.ProductID,
		Name:      input.Name,
		Spend:     input.Spend,
		Revenue:   input.Revenue,
		UnitsSold: input.UnitsSold,
		CTR:       input.CTR,
	})
	reco := s.engine.Recommend(rec, input.Costs, input.UnitPrice)
	s.metrics.IncVerdict(reco.Tag.String())
	return &RecommendResult{Record: rec, Recommendation: reco}, nil
}

func (s *service) Plan(ctx context.Context, userID uuid.UUID, input PlanInput) (res *PlanResult, err error) {
	defer func() { s.metrics.ObserveRun(modePlan, err) }()
	if err = s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	out, err := Plan(input)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) AnalyzeManual(ctx context.Context, userID uuid.UUID, input ManualInput) (res *ManualResult, err error) {
	defer func() { s.metrics.ObserveRun(modeManual, err) }()
	if err = s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.engine.AnalyzeManual(input)
	if err != nil {
		return nil, err
	}
	s.metrics.IncVerdict(out.Recommendation.Tag.String())
	return &out, nil
}

// AnalyzeBatch parses an export, ranks its running ads and keeps the result as the caller's
// snapshot for later recalculation.
func (s *service) AnalyzeBatch(ctx context.Context, userID uuid.UUID, export io.Reader) (res *BatchResult, err error) {
	defer func() { s.metrics.ObserveRun(modeBatch, err) }()
	if err = s.authorize(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := ParseExport(export)
	if err != nil {
		return nil, translateBatchError(err)
	}
	result, err := s.analyzer.Analyze(rows)
	if err != nil {
		return nil, translateBatchError(err)
	}

	s.metrics.ObserveBatchSize(len(result.Rows))
	for _, row := range result.Rows {
		s.metrics.IncVerdict(row.Recommendation.Tag.String())
	}

	if saveErr := s.snapshots.Save(ctx, userID.String(), result); saveErr != nil {
		s.logg.Error(ctx, "failed to store batch snapshot", saveErr)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rows_parsed":  len(rows),
		"rows_running": len(result.Rows),
	}), "batch export analyzed")
	return &result, nil
}

func (s *service) Recalculate(ctx context.Context, userID uuid.UUID, input RecalculateInput) (res *RecalculateResult, err error) {
	defer func() { s.metrics.ObserveRun(modeRecalculate, err) }()
	if err = s.authorize(ctx, userID); err != nil {
		return nil, err
	}

	snapshot, loadErr := s.snapshots.Load(ctx, userID.String())
	if loadErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", loadErr.Error()), "batch snapshot unavailable, using fallback name")
		snapshot = nil
	}
	out, err := s.engine.Recalculate(input, snapshot)
	if err != nil {
		return nil, err
	}
	s.metrics.IncVerdict(out.Recommendation.Tag.String())
	return &out, nil
}

func translateBatchError(err error) error {
	var missing *MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "the export is missing required columns").
			WithDetails(map[string]any{"missing_columns": missing.Columns})
	case errors.Is(err, ErrUndecodable):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "the export could not be read; upload the CSV as exported by the marketplace")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "analyze export")
}

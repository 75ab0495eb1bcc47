package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/simaogato/wealthwise-backend/internal/usecase/allocator"
	"github.com/simaogato/wealthwise-backend/internal/usecase/consistency"
	"github.com/simaogato/wealthwise-backend/internal/usecase/history"
	"github.com/simaogato/wealthwise-backend/internal/usecase/investment"
)

// HistoryCalculator reconstructs a user's portfolio valuation series
type HistoryCalculator interface {
	CalculateUserHistory(ctx context.Context, userID uuid.UUID, start, end *domain.Date) (*history.Result, error)
}

// NetWorthCalculator computes and records net worth
type NetWorthCalculator interface {
	GetCurrentNetWorth(ctx context.Context, userID uuid.UUID) (*domain.NetWorthResult, error)
	RecordMilestone(ctx context.Context, userID uuid.UUID) (*domain.NetWorthMilestone, error)
}

// ConsistencyValidator cross-checks a user's stored figures
type ConsistencyValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, cfg consistency.Config) (*domain.ValidationReport, error)
}

// QuoteRefresher refreshes holding prices from live quotes
type QuoteRefresher interface {
	RefreshQuotes(ctx context.Context, userID uuid.UUID) (*investment.RefreshResult, error)
}

// Server implements the ValuationService gRPC server
type Server struct {
	HistoryService     HistoryCalculator
	CoverageService    history.CoverageEnsurer
	NetWorthService    NetWorthCalculator
	Validator          ConsistencyValidator
	InvestmentService  QuoteRefresher
	HoldingRepo        domain.HoldingRepository
	ValidationDefaults consistency.Config
}

// NewServer creates a new gRPC server instance
func NewServer(
	historyService HistoryCalculator,
	coverageService history.CoverageEnsurer,
	netWorthService NetWorthCalculator,
	validator ConsistencyValidator,
	investmentService QuoteRefresher,
	holdingRepo domain.HoldingRepository,
) *Server {
	return &Server{
		HistoryService:     historyService,
		CoverageService:    coverageService,
		NetWorthService:    netWorthService,
		Validator:          validator,
		InvestmentService:  investmentService,
		HoldingRepo:        holdingRepo,
		ValidationDefaults: consistency.DefaultConfig(),
	}
}

var _ ValuationServiceServer = (*Server)(nil)

// requireUser returns the user set by AuthInterceptor
func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "missing %s metadata", UserIDHeader)
	}
	return userID, nil
}

// GetPortfolioHistory handles the GetPortfolioHistory RPC.
// Request fields: start, end (optional ISO dates).
func (s *Server) GetPortfolioHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	start, err := optionalDate(req, "start")
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(req, "end")
	if err != nil {
		return nil, err
	}

	result, err := s.HistoryService.CalculateUserHistory(ctx, userID, start, end)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(historyToMap(result))
}

// GetCoverage handles the GetCoverage RPC.
// Request fields: symbols (list), start and end (ISO dates), ensure (bool, backfill gaps first).
func (s *Server) GetCoverage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbols, err := stringList(req, "symbols")
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "symbols must not be empty")
	}

	start, err := optionalDate(req, "start")
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(req, "end")
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, status.Errorf(codes.InvalidArgument, "start and end are required")
	}

	ensure, err := optionalBool(req, "ensure")
	if err != nil {
		return nil, err
	}

	dateRange := domain.DateRange{Start: *start, End: *end}
	if err := dateRange.Validate(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid range: %v", err)
	}

	var report *domain.CoverageReport
	if ensure {
		report, err = s.CoverageService.EnsureCoverage(ctx, symbols, dateRange)
	} else {
		report, err = s.CoverageService.Measure(ctx, symbols, dateRange)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(coverageToMap(report))
}

// GetNetWorth handles the GetNetWorth RPC
func (s *Server) GetNetWorth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.NetWorthService.GetCurrentNetWorth(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(netWorthToMap(result))
}

// RecordNetWorthMilestone handles the RecordNetWorthMilestone RPC
func (s *Server) RecordNetWorthMilestone(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	milestone, err := s.NetWorthService.RecordMilestone(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(milestoneToMap(milestone))
}

// ValidateConsistency handles the ValidateConsistency RPC.
// Request fields: categories (optional list restricting which checks run).
func (s *Server) ValidateConsistency(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := stringList(req, "categories")
	if err != nil {
		return nil, err
	}

	cfg, err := s.validationConfig(categories)
	if err != nil {
		return nil, err
	}

	report, err := s.Validator.Validate(ctx, userID, cfg)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(validationToMap(report))
}

// validationConfig narrows the default checks to the requested categories
func (s *Server) validationConfig(categories []string) (consistency.Config, error) {
	cfg := s.ValidationDefaults
	if len(categories) == 0 {
		return cfg, nil
	}

	cfg.CheckAccounts = false
	cfg.CheckInvestments = false
	cfg.CheckDebts = false
	cfg.CheckPhysicalAssets = false
	cfg.CheckBudgets = false
	cfg.CheckGoals = false
	cfg.CheckNetWorth = false

	for _, category := range categories {
		switch strings.ToLower(strings.TrimSpace(category)) {
		case consistency.CategoryAccounts:
			cfg.CheckAccounts = true
		case consistency.CategoryInvestments:
			cfg.CheckInvestments = true
		case consistency.CategoryDebts:
			cfg.CheckDebts = true
		case consistency.CategoryPhysicalAssets:
			cfg.CheckPhysicalAssets = true
		case consistency.CategoryBudgets:
			cfg.CheckBudgets = true
		case consistency.CategoryGoals:
			cfg.CheckGoals = true
		case consistency.CategoryNetWorth:
			cfg.CheckNetWorth = true
		default:
			return cfg, status.Errorf(codes.InvalidArgument, "invalid category %q", category)
		}
	}

	return cfg, nil
}

// RefreshQuotes handles the RefreshQuotes RPC
func (s *Server) RefreshQuotes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.InvestmentService.RefreshQuotes(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(refreshToMap(result))
}

// GetAllocation handles the GetAllocation RPC
func (s *Server) GetAllocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	// A user without holdings has an empty allocation, not an error
	if len(holdings) == 0 {
		return toStruct(allocationToMap(nil))
	}

	slices, err := allocator.CalculateAllocation(holdings)
	if errors.Is(err, allocator.ErrNoPortfolioValue) {
		// Holdings that were never priced have nothing to allocate yet
		return toStruct(allocationToMap(nil))
	}
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(allocationToMap(slices))
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	case errors.Is(err, history.ErrInvalidRange):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrSymbolNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrLoanAlreadyEmbedded):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	}

	// Map common validation errors to InvalidArgument
	if strings.Contains(errorMsg, "must be positive") ||
		strings.Contains(errorMsg, "invalid") ||
		strings.Contains(errorMsg, "cannot be empty") ||
		strings.Contains(errorMsg, "must not be negative") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	// Map "not found" errors to NotFound
	if strings.Contains(errorMsg, "not found") {
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}

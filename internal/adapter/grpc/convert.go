package grpc

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthwise-backend/internal/domain"
	"github.com/simaogato/wealthwise-backend/internal/usecase/allocator"
	"github.com/simaogato/wealthwise-backend/internal/usecase/history"
	"github.com/simaogato/wealthwise-backend/internal/usecase/investment"
)

// Request parsing

// optionalDate reads an ISO date field; a missing or empty field yields nil
func optionalDate(req *structpb.Struct, field string) (*domain.Date, error) {
	value, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}

	s, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s: must be a date string", field)
	}
	if s.StringValue == "" {
		return nil, nil
	}

	date, err := domain.ParseDate(s.StringValue)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return &date, nil
}

// stringList reads a list of strings; a missing field yields nil
func stringList(req *structpb.Struct, field string) ([]string, error) {
	value, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}

	list := value.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s: must be a list of strings", field)
	}

	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s: must be a list of strings", field)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// optionalBool reads a boolean flag; a missing field yields false
func optionalBool(req *structpb.Struct, field string) (bool, error) {
	value, ok := req.GetFields()[field]
	if !ok {
		return false, nil
	}
	b, ok := value.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, status.Errorf(codes.InvalidArgument, "invalid %s: must be a boolean", field)
	}
	return b.BoolValue, nil
}

// Response encoding. Money is sent as decimal strings and dates as ISO strings,
// matching how amounts travel in the rest of the API.

func toStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// finiteOrNil maps infinite values (a deviation against a zero live value) to null
func finiteOrNil(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

func optionalID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func stringsToList(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func coverageToMap(report *domain.CoverageReport) map[string]any {
	if report == nil {
		return map[string]any{}
	}

	symbols := make([]any, 0, len(report.Symbols))
	for _, sc := range report.Symbols {
		symbols = append(symbols, map[string]any{
			"symbol":           sc.Symbol,
			"coverage_percent": sc.CoveragePercent,
			"bar_count":        sc.BarCount,
			"first_date":       sc.FirstDate.String(),
			"last_date":        sc.LastDate.String(),
			"backfilled":       sc.Backfilled,
		})
	}

	return map[string]any{
		"start":           report.Range.Start.String(),
		"end":             report.Range.End.String(),
		"expected_days":   report.ExpectedDays,
		"total_bars":      report.TotalBars,
		"overall_percent": report.OverallPercent,
		"symbols":         symbols,
	}
}

func historyToMap(result *history.Result) map[string]any {
	snapshots := make([]any, 0, len(result.Snapshots))
	for _, snap := range result.Snapshots {
		snapshots = append(snapshots, map[string]any{
			"date":              snap.Date.String(),
			"value":             snap.Value.String(),
			"holdings_included": snap.HoldingsIncluded,
			"holdings_total":    snap.HoldingsTotal,
			"confidence":        snap.Confidence,
			"quality":           string(snap.Quality),
		})
	}

	labelCounts := make(map[string]any, len(result.Quality.LabelCounts))
	for label, count := range result.Quality.LabelCounts {
		labelCounts[string(label)] = count
	}

	return map[string]any{
		"user_id":       result.UserID.String(),
		"start":         result.Range.Start.String(),
		"end":           result.Range.End.String(),
		"snapshots":     snapshots,
		"coverage":      coverageToMap(result.Coverage),
		"current_value": result.CurrentValue.String(),
		"deviation":     finiteOrNil(result.Deviation),
		"quality": map[string]any{
			"average_confidence": result.Quality.AverageConfidence,
			"label":              string(result.Quality.Label),
			"label_counts":       labelCounts,
			"coverage_percent":   result.Quality.CoveragePercent,
		},
		"warnings": stringsToList(result.Warnings),
	}
}

func netWorthToMap(result *domain.NetWorthResult) map[string]any {
	return map[string]any{
		"user_id":       result.UserID.String(),
		"net_worth":     result.NetWorth.String(),
		"calculated_at": formatTime(result.CalculatedAt),
		"breakdown": map[string]any{
			"liquid_assets":     result.Breakdown.LiquidAssets.String(),
			"portfolio_value":   result.Breakdown.PortfolioValue.String(),
			"physical_assets":   result.Breakdown.PhysicalAssets.String(),
			"total_liabilities": result.Breakdown.TotalLiabilities.String(),
			"embedded_loans":    result.Breakdown.EmbeddedLoans.String(),
		},
	}
}

func milestoneToMap(m *domain.NetWorthMilestone) map[string]any {
	return map[string]any{
		"id":                m.ID.String(),
		"user_id":           m.UserID.String(),
		"recorded_at":       formatTime(m.RecordedAt),
		"net_worth":         m.NetWorth.String(),
		"liquid_assets":     m.LiquidAssets.String(),
		"portfolio_value":   m.PortfolioValue.String(),
		"physical_assets":   m.PhysicalAssets.String(),
		"total_liabilities": m.TotalLiabilities.String(),
	}
}

func issuesToList(issues []domain.ValidationIssue) []any {
	out := make([]any, 0, len(issues))
	for _, issue := range issues {
		out = append(out, map[string]any{
			"severity":      string(issue.Severity),
			"category":      issue.Category,
			"message":       issue.Message,
			"record_id":     optionalID(issue.RecordID),
			"suggested_fix": issue.SuggestedFix,
		})
	}
	return out
}

func validationToMap(report *domain.ValidationReport) map[string]any {
	return map[string]any{
		"user_id":  report.UserID.String(),
		"is_valid": report.IsValid,
		"score":    report.Score,
		"issues":   issuesToList(report.Issues),
		"warnings": issuesToList(report.Warnings),
	}
}

func refreshToMap(result *investment.RefreshResult) map[string]any {
	return map[string]any{
		"updated":         result.Updated,
		"failed_symbols":  stringsToList(result.FailedSymbols),
		"portfolio_value": result.PortfolioValue.String(),
	}
}

func allocationToMap(slices []allocator.Slice) map[string]any {
	out := make([]any, 0, len(slices))
	total := decimal.Zero
	for _, slice := range slices {
		total = total.Add(slice.Value)
		out = append(out, map[string]any{
			"symbol":   slice.Symbol,
			"value":    slice.Value.String(),
			"percent":  slice.Percent.String(),
			"holdings": slice.Holdings,
		})
	}
	return map[string]any{
		"total_value": total.String(),
		"slices":      out,
	}
}


package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ErrNoTrades is returned when the filters leave nothing to write.
var ErrNoTrades = errors.New("no trades match the export criteria")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	StartTime  time.Time
	EndTime    time.Time
	SideFilter domain.Side
	// TraderFilter keeps only receipts of one account when non-zero.
	TraderFilter solana.PublicKey
	OutputDir    string
}

// TradeExporter writes trade journals to disk.
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportTrades writes the receipts of one asset that match options and
// returns the file path.
func (te *TradeExporter) ExportTrades(asset domain.AssetID, trades []*domain.Receipt, options ExportOptions) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", ErrNoTrades
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Seq < filtered[j].Seq
	})

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(asset, options))
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(asset, filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Uint64("asset_id", uint64(asset)),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []*domain.Receipt, options ExportOptions) []*domain.Receipt {
	var filtered []*domain.Receipt

	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !trade.Timestamp.Before(options.EndTime) {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		if !options.TraderFilter.IsZero() && trade.Trader != options.TraderFilter {
			continue
		}
		filtered = append(filtered, trade)
	}

	return filtered
}

func (te *TradeExporter) generateFilename(asset domain.AssetID, options ExportOptions) string {
	timestamp := te.now().Format("20060102_150405")

	prefix := fmt.Sprintf("asset_%d_trades_all", asset)
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("asset_%d_trades_%s", asset, options.SideFilter)
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders is the column order of CSV exports.
func CSVHeaders() []string {
	return []string{
		"seq", "id", "asset_id", "side", "trader",
		"requested", "amount", "gross", "fee", "total", "refund",
		"supply_after", "funding_after", "graduated", "timestamp",
	}
}

func csvRow(r *domain.Receipt) []string {
	return []string{
		strconv.FormatUint(r.Seq, 10),
		r.ID,
		strconv.FormatUint(uint64(r.AssetID), 10),
		string(r.Side),
		r.Trader.String(),
		r.Requested.String(),
		r.Amount.String(),
		r.Gross.String(),
		r.Fee.String(),
		r.Total.String(),
		r.Refund.String(),
		r.SupplyAfter.String(),
		r.FundingAfter.String(),
		strconv.FormatBool(r.Graduated),
		r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func (te *TradeExporter) exportToCSV(trades []*domain.Receipt, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(asset domain.AssetID, trades []*domain.Receipt, outputPath string) error {
	summary, err := CalculateSummary(trades)
	if err != nil {
		return err
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time         `json:"export_time"`
		AssetID    domain.AssetID    `json:"asset_id"`
		TradeCount int               `json:"trade_count"`
		Trades     []*domain.Receipt `json:"trades"`
		Summary    ExportSummary     `json:"summary"`
	}{
		ExportTime: te.now().UTC(),
		AssetID:    asset,
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    summary,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary aggregates a set of receipts. Volumes are curve integrals
// in base currency units.
type ExportSummary struct {
	TotalTrades   int               `json:"total_trades"`
	BuyCount      int               `json:"buy_count"`
	SellCount     int               `json:"sell_count"`
	UniqueTraders int               `json:"unique_traders"`
	TokensBought  fixedpoint.Amount `json:"tokens_bought"`
	TokensSold    fixedpoint.Amount `json:"tokens_sold"`
	BuyVolume     fixedpoint.Amount `json:"buy_volume"`
	SellVolume    fixedpoint.Amount `json:"sell_volume"`
	FeesCollected fixedpoint.Amount `json:"fees_collected"`
	Graduated     bool              `json:"graduated"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
}

// CalculateSummary totals trades, which must be in journal order.
func CalculateSummary(trades []*domain.Receipt) (ExportSummary, error) {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary, nil
	}

	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	traders := make(map[solana.PublicKey]struct{})
	add := func(dst *fixedpoint.Amount, v fixedpoint.Amount) error {
		sum, err := fixedpoint.Add(*dst, v)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		*dst = sum
		return nil
	}

	for _, trade := range trades {
		traders[trade.Trader] = struct{}{}
		if err := add(&summary.FeesCollected, trade.Fee); err != nil {
			return ExportSummary{}, err
		}
		summary.Graduated = summary.Graduated || trade.Graduated

		var err error
		switch trade.Side {
		case domain.SideBuy:
			summary.BuyCount++
			if err = add(&summary.TokensBought, trade.Amount); err == nil {
				err = add(&summary.BuyVolume, trade.Gross)
			}
		case domain.SideSell:
			summary.SellCount++
			if err = add(&summary.TokensSold, trade.Amount); err == nil {
				err = add(&summary.SellVolume, trade.Gross)
			}
		}
		if err != nil {
			return ExportSummary{}, err
		}
	}

	summary.UniqueTraders = len(traders)
	return summary, nil
}

// DailyReport represents one UTC day of an asset's journal.
type DailyReport struct {
	AssetID         domain.AssetID    `json:"asset_id"`
	Date            time.Time         `json:"date"`
	TradeCount      int               `json:"trade_count"`
	Summary         ExportSummary     `json:"summary"`
	HourlyBreakdown []HourlyStats     `json:"hourly_breakdown"`
	Trades          []*domain.Receipt `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int               `json:"hour"`
	TradeCount int               `json:"trade_count"`
	BuyCount   int               `json:"buy_count"`
	SellCount  int               `json:"sell_count"`
	Volume     fixedpoint.Amount `json:"volume"`
}

// ExportDailyReport writes the report for the UTC day containing date. It
// returns an empty path when the asset did not trade that day.
func (te *TradeExporter) ExportDailyReport(asset domain.AssetID, trades []*domain.Receipt, date time.Time, outputDir string) (string, error) {
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	filtered := te.filterTrades(trades, ExportOptions{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	})
	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report",
			zap.Uint64("asset_id", uint64(asset)),
			zap.Time("date", startOfDay))
		return "", nil
	}

	summary, err := CalculateSummary(filtered)
	if err != nil {
		return "", err
	}
	breakdown, err := calculateHourlyBreakdown(filtered)
	if err != nil {
		return "", err
	}

	report := DailyReport{
		AssetID:         asset,
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Summary:         summary,
		HourlyBreakdown: breakdown,
		Trades:          filtered,
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("asset_%d_daily_%s.json", asset, startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

func calculateHourlyBreakdown(trades []*domain.Receipt) ([]HourlyStats, error) {
	hourly := make(map[int]*HourlyStats)

	for _, trade := range trades {
		hour := trade.Timestamp.UTC().Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			hourly[hour] = stats
		}

		stats.TradeCount++
		volume, err := fixedpoint.Add(stats.Volume, trade.Gross)
		if err != nil {
			return nil, fmt.Errorf("hour %d volume: %w", hour, err)
		}
		stats.Volume = volume

		switch trade.Side {
		case domain.SideBuy:
			stats.BuyCount++
		case domain.SideSell:
			stats.SellCount++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown, nil
}

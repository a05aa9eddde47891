package service

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetAssets  = "Assets"
	SheetSummary = "Summary"
)

const reportPageSize = 500

var assetColumns = []string{
	"ID", "Status", "Category", "Description", "Cost", "Location",
	"Ministry", "Agency", "Uploaded By", "Approved By", "Approved By Ministry",
	"Rejected By", "Rejection Reason", "Updated At",
}

// ReportService exports asset registers as spreadsheets
type ReportService interface {
	ExportAssets(ctx context.Context, actor entity.Actor, w io.Writer) error
}

type reportServiceImpl struct {
	assetRepo port.AssetRepository
	logger    Logger
}

// NewReportService creates a new ReportService
func NewReportService(assetRepo port.AssetRepository, logger Logger) ReportService {
	return &reportServiceImpl{
		assetRepo: assetRepo,
		logger:    logger,
	}
}

// ExportAssets writes an xlsx workbook with an Assets and a Summary sheet.
// Federal administrators get every asset, ministry administrators their ministry.
func (s *reportServiceImpl) ExportAssets(ctx context.Context, actor entity.Actor, w io.Writer) error {
	var filter entity.AssetFilter
	switch actor.Role {
	case entity.RoleFederalAdmin:
	case entity.RoleMinistryAdmin:
		if actor.MinistryID == "" {
			return apperr.Unauthorized("ministry admin %s has no ministry", actor.ID)
		}
		filter.MinistryID = actor.MinistryID
	default:
		return apperr.Unauthorized("role %q cannot export reports", actor.Role)
	}

	assets, err := s.collect(ctx, filter)
	if err != nil {
		return err
	}
	summary, err := s.assetRepo.Summary(ctx, filter)
	if err != nil {
		return fmt.Errorf("summarise assets: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAssets); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := fillAssetsSheet(f, assets); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := fillSummarySheet(f, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Asset report exported",
		"actor_id", actor.ID,
		"ministry_id", filter.MinistryID,
		"asset_count", len(assets),
	)
	return nil
}

func (s *reportServiceImpl) collect(ctx context.Context, filter entity.AssetFilter) ([]*entity.AssetRecord, error) {
	var all []*entity.AssetRecord
	filter.Limit = reportPageSize
	for {
		page, err := s.assetRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list assets for report: %w", err)
		}
		all = append(all, page...)
		if len(page) < reportPageSize {
			return all, nil
		}
		filter.Offset += reportPageSize
	}
}

func fillAssetsSheet(f *excelize.File, assets []*entity.AssetRecord) error {
	if err := setRow(f, SheetAssets, 1, toRow(assetColumns)); err != nil {
		return err
	}

	for i, a := range assets {
		row := []interface{}{
			a.ID,
			a.Status,
			a.Category,
			a.Description,
			float64(a.CostCents) / 100,
			a.Location,
			a.MinistryID,
			a.AgencyID,
			a.UploadedBy,
			a.ApprovedBy,
			a.ApprovedByMinistry,
			a.RejectedBy,
			a.RejectionReason,
			a.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := setRow(f, SheetAssets, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func fillSummarySheet(f *excelize.File, summary *entity.AssetSummary) error {
	rows := [][]interface{}{
		{"Total assets", summary.Total},
		{"Approved cost", float64(summary.ApprovedCostCents) / 100},
		{},
		{"Status", "Count"},
	}
	for _, status := range sortedKeys(summary.ByStatus) {
		rows = append(rows, []interface{}{status, summary.ByStatus[status]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Ministry", "Count"})
	for _, ministry := range sortedKeys(summary.ByMinistry) {
		rows = append(rows, []interface{}{ministry, summary.ByMinistry[ministry]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to set %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package service

import (
	"context"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const topVehicleMakes = 5

type ReportService interface {
	// GetReport aggregates settled facts for one dealership, or for every dealership the
	// manager works at when dealershipID is empty.
	GetReport(ctx context.Context, actor authz.Actor, dealershipID string) (model.ReportResponse, error)
}

type reportService struct {
	repo repository.ReportRepository
}

func NewReportService(repo repository.ReportRepository) ReportService {
	return &reportService{repo: repo}
}

func (s *reportService) scope(actor authz.Actor, dealershipID string) ([]uuid.UUID, error) {
	if !authz.IsManagementDealer(actor) {
		return nil, apperror.Forbidden()
	}
	if dealershipID == "" {
		return actor.DealershipIDs, nil
	}
	id, err := parseID(dealershipID, "dealership")
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ViewReports, authz.Resource{DealershipID: id}) {
		return nil, apperror.NotFound("dealership")
	}
	return []uuid.UUID{id}, nil
}

func (s *reportService) GetReport(ctx context.Context, actor authz.Actor, dealershipID string) (model.ReportResponse, error) {
	var report model.ReportResponse
	ids, err := s.scope(actor, dealershipID)
	if err != nil {
		return report, err
	}
	report.TopVehicleMakes = []model.VehicleMakeCount{}
	report.WholesalerWins = []model.WholesalerWins{}
	report.ProfitLoss = decimal.Zero
	if len(ids) == 0 {
		return report, nil
	}

	report.TotalAppraisals, report.ActiveCount, report.CompleteCount, report.TrashedCount, err = s.repo.CountByState(ctx, ids)
	if err != nil {
		return report, err
	}

	makes, err := s.repo.TopVehicleMakes(ctx, ids, topVehicleMakes)
	if err != nil {
		return report, err
	}
	if makes != nil {
		report.TopVehicleMakes = makes
	}

	wins, err := s.repo.WholesalerWins(ctx, ids)
	if err != nil {
		return report, err
	}
	if wins != nil {
		report.WholesalerWins = wins
	}

	// Profit/loss = sum of (effective winning amount - reserve price)
	settled, err := s.repo.Settled(ctx, ids)
	if err != nil {
		return report, err
	}
	for _, row := range settled {
		report.ProfitLoss = report.ProfitLoss.Add(row.Margin())
	}

	return report, nil
}

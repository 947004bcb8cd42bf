package service

import (
	"appraisal-backend/internal/repository"

	"gorm.io/gorm"
)

// Services is every service wired against one database.
type Services struct {
	Accounts    AccountService
	Dealers     DealerService
	Wholesalers WholesalerService
	Appraisals  AppraisalService
	Offers      OfferService
	Network     NetworkService
	Reports     ReportService
	Audits      AuditService
}

// New wires repositories into services. Events are published after each commit.
func New(db *gorm.DB, tokens TokenIssuer, events EventPublisher) *Services {
	accountRepo := repository.NewAccountRepository(db)
	dealershipRepo := repository.NewDealershipRepository(db)
	dealerRepo := repository.NewDealerProfileRepository(db)
	wholesalerRepo := repository.NewWholesalerRepository(db)
	appraisalRepo := repository.NewAppraisalRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	txManager := repository.NewTransactionManager(db)

	return &Services{
		Accounts:    NewAccountService(accountRepo, dealerRepo, wholesalerRepo, txManager, tokens),
		Dealers:     NewDealerService(accountRepo, dealershipRepo, dealerRepo, auditRepo, txManager),
		Wholesalers: NewWholesalerService(wholesalerRepo, auditRepo, txManager),
		Appraisals:  NewAppraisalService(appraisalRepo, dealershipRepo, auditRepo, txManager, events),
		Offers:      NewOfferService(appraisalRepo, offerRepo, dealershipRepo, auditRepo, txManager, events),
		Network:     NewNetworkService(requestRepo, wholesalerRepo, dealershipRepo, auditRepo, txManager),
		Reports:     NewReportService(reportRepo),
		Audits:      NewAuditService(auditRepo),
	}
}

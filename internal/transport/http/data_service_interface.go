package http

import (
	"context"
	"net/http"

	"nbacli/pkg/contracts/domain"
)

// DataServiceInterface defines the interface for data operations
type DataServiceInterface interface {
	GetDomains(ctx context.Context) ([]map[string]interface{}, error)
	GetFiles(ctx context.Context, domain, season string) (map[string]interface{}, error)
	GetWorkbooks(ctx context.Context) ([]map[string]interface{}, error)
	DownloadFile(ctx context.Context, w http.ResponseWriter, r *http.Request, domain, rel string) error
	PlayerRecords(ctx context.Context) ([]domain.Player, error)
	FranchiseRecords(ctx context.Context) ([]domain.Franchise, error)
	AwardBallots(ctx context.Context, award string) ([]domain.AwardShare, error)
	ScheduleGames(ctx context.Context, season string, playoffs bool) ([]domain.ScheduleGame, error)
}

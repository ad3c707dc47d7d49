package http

import (
	"context"

	"nbacli/internal/operations"
)

// OperationServiceInterface is the contract the operations handler needs
// from the service layer. Kept small so handler tests can swap in a mock.
type OperationServiceInterface interface {
	StartOperation(ctx context.Context, params map[string]interface{}) (string, error)
	StartStep(ctx context.Context, stepID string, params map[string]interface{}) (string, error)
	ExecuteOperation(ctx context.Context, request *operations.OperationRequest) (*operations.OperationResponse, error)
	StopOperation(ctx context.Context, operationID string) error
	CancelOperation(ctx context.Context, operationID string) error
	GetOperationStatus(ctx context.Context, operationID string) (*operations.OperationState, error)
	ListOperations(ctx context.Context) ([]*operations.OperationState, error)
	ListOperationsByStatus(ctx context.Context, status operations.OperationStatus) ([]*operations.OperationState, error)
	GetOperationTypes(ctx context.Context) ([]operations.OperationType, error)
	GetOperationMetrics(ctx context.Context) (map[string]interface{}, error)
}

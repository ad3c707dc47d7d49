package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"nbacli/internal/awards"
	"nbacli/internal/config"
	"nbacli/internal/operations"
	"nbacli/internal/roster"
	"nbacli/internal/schedule"
)

// OperationService owns the operation manager and the engines behind the
// five registered steps. Handlers talk to it through
// transport/http.OperationServiceInterface.
type OperationService struct {
	manager *operations.Manager
	logger  *slog.Logger
	paths   *config.Paths
}

// NewOperationService builds the cleaning engines, registers the default
// steps and returns a service wrapping the resulting manager. The hub
// receives operation snapshots; the recorder persists run manifests.
func NewOperationService(hub operations.WebSocketHub, recorder operations.RunRecorder, cfg *config.Config, logger *slog.Logger) (*OperationService, error) {
	paths, err := resolveServicePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if logger != nil {
		logger.Info("OperationService initialized with paths",
			slog.String("data_dir", paths.DataDir),
			slog.String("raw_dir", paths.RawDir),
			slog.String("processed_dir", paths.ProcessedDir),
			slog.String("external_dir", paths.ExternalDir))
	}

	manager := operations.NewManager(hub, nil, nil)

	if err := registerSteps(manager, paths, cfg, logger, hub, recorder); err != nil {
		return nil, fmt.Errorf("failed to register steps: %w", err)
	}

	return &OperationService{
		manager: manager,
		logger:  logger,
		paths:   paths,
	}, nil
}

// registerSteps wires the engines into the manager's registry.
func registerSteps(manager *operations.Manager, paths *config.Paths, cfg *config.Config, logger *slog.Logger, hub operations.WebSocketHub, recorder operations.RunRecorder) error {
	options := &operations.StepOptions{
		EnableProgress:    true,
		WebSocketManager:  hub,
		StatusBroadcaster: manager.GetBroadcaster(),
		Recorder:          recorder,
	}

	domains := operations.DefaultDomains()
	pipeline := operations.NewPipeline(paths, domains, logger)
	importer := operations.NewImporter(paths, domains, logger)

	var pipelineCfg config.PipelineConfig
	if cfg != nil {
		pipelineCfg = cfg.Pipeline
	}

	importStep := operations.NewImportStep(importer, logger, options)
	cleanStep := operations.NewCleanStep(pipeline, logger, options)
	rosterStep := operations.NewRosterStep(roster.NewCleaner(paths, pipelineCfg, logger), paths, logger, options)
	awardsStep := operations.NewAwardsStep(awards.NewCleaner(paths, logger), paths, logger, options)
	scheduleStep := operations.NewScheduleStep(schedule.NewBuilder(paths, logger), paths, logger, options)

	return operations.RegisterDefaultSteps(manager.GetRegistry(), importStep, cleanStep, rosterStep, awardsStep, scheduleStep)
}

// StartOperation builds a request from loose parameters and executes it.
// Season selection accepts "season", "seasons" and "all_seasons"; "domain"
// narrows the clean step to a single stat domain.
func (ps *OperationService) StartOperation(ctx context.Context, params map[string]interface{}) (string, error) {
	request := operations.OperationRequest{
		ID:         fmt.Sprintf("operation-%d", time.Now().UnixNano()),
		Parameters: params,
	}

	if d, ok := params["domain"].(string); ok {
		request.Domain = d
	}
	if s, ok := params["season"].(string); ok {
		request.Season = s
	}
	switch list := params["seasons"].(type) {
	case []string:
		request.Seasons = list
	case []interface{}:
		for _, e := range list {
			if s, ok := e.(string); ok {
				request.Seasons = append(request.Seasons, s)
			}
		}
	}
	if all, ok := params["all_seasons"].(bool); ok {
		request.AllSeasons = all
	}
	if force, ok := params["force"].(bool); ok {
		request.Force = force
	}

	if ps.logger != nil {
		ps.logger.Info("creating operation request",
			slog.String("id", request.ID),
			slog.String("domain", request.Domain),
			slog.String("season", request.Season),
			slog.Any("seasons", request.Seasons),
			slog.Bool("all_seasons", request.AllSeasons),
			slog.Bool("force", request.Force))
	}

	resp, err := ps.manager.Execute(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to start operation: %w", err)
	}

	if ps.logger != nil {
		ps.logger.Info("operation started",
			slog.String("id", resp.ID),
			slog.String("status", string(resp.Status)))
	}
	return resp.ID, nil
}

// StartStep runs one registered step by itself.
func (ps *OperationService) StartStep(ctx context.Context, stepID string, params map[string]interface{}) (string, error) {
	if !ps.manager.GetRegistry().Has(stepID) {
		return "", fmt.Errorf("unknown step: %s", stepID)
	}

	stepParams := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		stepParams[k] = v
	}
	stepParams["step"] = stepID

	return ps.StartOperation(ctx, stepParams)
}

// ExecuteOperation executes an operation with the given request
func (ps *OperationService) ExecuteOperation(ctx context.Context, request *operations.OperationRequest) (*operations.OperationResponse, error) {
	resp, err := ps.manager.Execute(ctx, *request)
	if err != nil {
		return nil, fmt.Errorf("failed to execute operation: %w", err)
	}

	if ps.logger != nil {
		ps.logger.Info("operation executed",
			slog.String("id", resp.ID),
			slog.String("status", string(resp.Status)))
	}

	return resp, nil
}

// GetOperationStatus returns the status of a specific operation
func (ps *OperationService) GetOperationStatus(ctx context.Context, operationID string) (*operations.OperationState, error) {
	return ps.GetStatus(ctx, operationID)
}

// CancelOperation cancels a running operation
func (ps *OperationService) CancelOperation(ctx context.Context, operationID string) error {
	return ps.StopOperation(ctx, operationID)
}

// StopOperation stops a running operation
func (ps *OperationService) StopOperation(ctx context.Context, operationID string) error {
	if err := ps.manager.CancelOperation(operationID); err != nil {
		return fmt.Errorf("failed to stop operation: %w", err)
	}

	if ps.logger != nil {
		ps.logger.Info("operation stopped",
			slog.String("id", operationID))
	}
	return nil
}

// GetStatus returns operation status
func (ps *OperationService) GetStatus(ctx context.Context, operationID string) (*operations.OperationState, error) {
	if operationID == "" {
		return nil, fmt.Errorf("operation ID is required")
	}

	state, err := ps.manager.GetOperation(operationID)
	if err != nil {
		return nil, fmt.Errorf("operation not found: %w", err)
	}

	return state, nil
}

// ListOperations returns all operations
func (ps *OperationService) ListOperations(ctx context.Context) ([]*operations.OperationState, error) {
	return ps.manager.ListOperations(), nil
}

// ListOperationsByStatus returns operations filtered by status
func (ps *OperationService) ListOperationsByStatus(ctx context.Context, status operations.OperationStatus) ([]*operations.OperationState, error) {
	states := ps.manager.ListOperations()
	var result []*operations.OperationState
	for _, state := range states {
		if state.GetStatus() == status {
			result = append(result, state)
		}
	}
	return result, nil
}

// GetOperationTypes returns all registered step types plus the full run
func (ps *OperationService) GetOperationTypes(ctx context.Context) ([]operations.OperationType, error) {
	steps := ps.manager.GetRegistry().List()

	types := make([]operations.OperationType, 0, len(steps)+1)
	for _, step := range steps {
		types = append(types, operations.OperationType{
			ID:           step.ID(),
			Name:         step.Name(),
			Description:  getStepDescription(step.ID()),
			Dependencies: step.GetDependencies(),
			CanRunAlone:  len(step.GetDependencies()) == 0,
			Parameters:   getStepParameters(step.ID()),
		})
	}

	types = append(types, operations.OperationType{
		ID:           "full_pipeline",
		Name:         "Full Pipeline",
		Description:  "Run every step in dependency order: import, clean, roster, awards, schedule",
		Dependencies: []string{},
		CanRunAlone:  true,
		Parameters:   scopeParameters(),
	})

	return types, nil
}

// getStepDescription returns a user-friendly description for each step
func getStepDescription(stepID string) string {
	descriptions := map[string]string{
		operations.StepIDImport:   "Import cleaned workbooks into the SQLite database",
		operations.StepIDClean:    "Clean raw stat sheets across all registered domains",
		operations.StepIDRoster:   "Assemble per-season rosters with headshot URLs",
		operations.StepIDAwards:   "Reshape award voting ballots into long form",
		operations.StepIDSchedule: "Enrich the season schedule with rest-day features",
	}

	if desc, ok := descriptions[stepID]; ok {
		return desc
	}
	return "Process data"
}

// scopeParameters are the season-selection parameters shared by every step.
func scopeParameters() []operations.ParameterDefinition {
	return []operations.ParameterDefinition{
		{
			Name:        "season",
			Type:        "string",
			Description: "Season label (YYYY-YY, e.g. 2024-25)",
			Required:    false,
			Default:     "",
		},
		{
			Name:        "seasons",
			Type:        "list",
			Description: "Explicit list of season labels",
			Required:    false,
		},
		{
			Name:        "all_seasons",
			Type:        "bool",
			Description: "Process every season found on disk",
			Required:    false,
			Default:     false,
		},
		{
			Name:        "force",
			Type:        "bool",
			Description: "Rewrite outputs even when inputs are unchanged",
			Required:    false,
			Default:     false,
		},
	}
}

// getStepParameters returns the parameters accepted by each step
func getStepParameters(stepID string) []operations.ParameterDefinition {
	params := scopeParameters()

	switch stepID {
	case operations.StepIDClean:
		return append(params, operations.ParameterDefinition{
			Name:        "domain",
			Type:        "select",
			Description: "Restrict cleaning to a single stat domain",
			Required:    false,
			Default:     "",
			Options:     operations.DefaultDomains().SortedNames(),
		})
	case operations.StepIDImport:
		// The importer reads whatever cleaned workbooks exist; it only
		// honors the season scope.
		return params
	default:
		return params
	}
}

// CancelAll stops all running operations
func (ps *OperationService) CancelAll(ctx context.Context) error {
	ops := ps.manager.ListOperations()
	for _, op := range ops {
		if op.GetStatus() == operations.OperationStatusRunning {
			if err := ps.manager.CancelOperation(op.ID); err != nil {
				if ps.logger != nil {
					ps.logger.Error("failed to cancel operation",
						slog.String("id", op.ID),
						slog.String("error", err.Error()))
				}
				return err
			}
		}
	}
	return nil
}

// ValidateDataDirs checks that the directories the steps read and write
// exist and are reachable. Called once at startup; a missing raw tree is
// reported but not fatal since the server can still serve old outputs.
func (ps *OperationService) ValidateDataDirs(ctx context.Context) error {
	required := []string{
		ps.paths.DataDir,
		ps.paths.ProcessedDir,
		ps.paths.ExternalDir,
	}

	for _, dir := range required {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return fmt.Errorf("required directory not available: %s: %w", dir, mkErr)
			}
			if ps.logger != nil {
				ps.logger.Info("created missing data directory",
					slog.String("dir", dir))
			}
		}
	}

	if _, err := os.Stat(ps.paths.RawDir); os.IsNotExist(err) {
		if ps.logger != nil {
			ps.logger.Warn("raw data directory not found; clean runs will have nothing to read",
				slog.String("dir", ps.paths.RawDir))
		}
	}

	return nil
}

// GetManager returns the underlying operation manager
func (ps *OperationService) GetManager() *operations.Manager {
	return ps.manager
}

// GetOperationMetrics returns metrics about operations
func (ps *OperationService) GetOperationMetrics(ctx context.Context) (map[string]interface{}, error) {
	states, err := ps.ListOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	activeCount := 0
	completedCount := 0
	failedCount := 0

	for _, op := range states {
		switch op.GetStatus() {
		case operations.OperationStatusRunning, operations.OperationStatusPending:
			activeCount++
		case operations.OperationStatusCompleted:
			completedCount++
		case operations.OperationStatusFailed, operations.OperationStatusCancelled:
			failedCount++
		}
	}

	metrics := map[string]interface{}{
		"total_operations":     len(states),
		"active_operations":    activeCount,
		"completed_operations": completedCount,
		"failed_operations":    failedCount,
		"timestamp":            time.Now().Unix(),
	}

	if ps.logger != nil {
		ps.logger.DebugContext(ctx, "retrieved operation metrics",
			slog.Int("total", len(states)),
			slog.Int("active", activeCount))
	}

	return metrics, nil
}

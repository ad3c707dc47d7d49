// Package services implements the business logic layer between the HTTP
// handlers and the cleaning engines, keeping business rules centralized
// and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Available Services
//
// The package provides these core services:
//
//	- OperationService: owns the operation manager and the registered steps
//	- DataService: lists domains, cleaned artifacts and pending workbooks
//	- RunService: answers run-history queries from the catalog
//	- HealthService: liveness, readiness and version reporting
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    deps   Dependencies
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(deps Dependencies, logger *slog.Logger) *ServiceName {
//	    return &ServiceName{
//	        deps:   deps,
//	        logger: logger,
//	    }
//	}
//
// # Error Handling
//
// Services return domain-specific errors that handlers transform into
// RFC 7807 responses:
//
//	- Validation errors for invalid input
//	- Not found errors for missing resources
//	- Conflict errors for concurrent runs
//	- Internal errors for unexpected failures
//
// # Testing
//
// Services are tested against temporary data trees and mocked
// dependencies:
//
//	hub := new(MockWebSocketHub)
//	hub.On("BroadcastUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
//	svc, err := NewOperationService(hub, nil, cfg, logger)
package services

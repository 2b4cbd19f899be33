// Package system wires the model validators, the business rule engine,
// and the integrity monitor into one entry point per operation. A System
// is an explicit dependency constructed once at startup and passed into
// request-handling code; there is no package-level singleton.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/integrity"
	"github.com/taskward/taskward/internal/metrics"
	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/rules"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
	"github.com/taskward/taskward/internal/validators"
)

var (
	// ErrNotInitialized is returned when a validation entry point is
	// called before Initialize.
	ErrNotInitialized = errors.New("validation system not initialized")

	// ErrMonitoringDisabled is returned by PerformIntegrityCheck when
	// integrity monitoring is switched off in the configuration.
	ErrMonitoringDisabled = errors.New("integrity monitoring is disabled")
)

// ModelValidator is the per-model validation pipeline the system
// dispatches to.
type ModelValidator interface {
	Model() string
	ValidateCreate(ctx context.Context, data map[string]interface{}, vctx *validation.Context) *validation.Result
	ValidateUpdate(ctx context.Context, data map[string]interface{}, vctx *validation.Context) *validation.Result
	ValidateDelete(ctx context.Context, id string, vctx *validation.Context) *validation.Result
}

// ReferenceValidator is the request-time foreign-key stage.
type ReferenceValidator interface {
	ValidateReferences(ctx context.Context, modelName string, data map[string]interface{}) *validation.Result
	AnalyzeCascade(ctx context.Context, modelName, id string) (*store.CascadeReport, error)
}

// IntegrityChecker is the out-of-band scan stage.
type IntegrityChecker interface {
	PerformIntegrityCheck(ctx context.Context, cfg integrity.CheckConfig) (*integrity.Report, error)
}

// StageResults is the per-stage breakdown of one ValidateModel call. A
// stage that did not run is nil.
type StageResults struct {
	Model         *validation.Result `json:"model,omitempty"`
	ForeignKeys   *validation.Result `json:"foreignKeys,omitempty"`
	BusinessRules *validation.Result `json:"businessRules,omitempty"`
}

// ModelResult is the unified outcome of one ValidateModel call.
type ModelResult struct {
	Valid    bool                 `json:"valid"`
	Model    string               `json:"model"`
	Stages   StageResults         `json:"stages"`
	Errors   []string             `json:"errors"`
	Warnings []validation.Warning `json:"warnings"`
	// Data is the payload after rule transforms; callers persist this,
	// not their original map.
	Data map[string]interface{} `json:"data,omitempty"`
	// Outcomes is the engine's per-rule breakdown.
	Outcomes []rules.Outcome `json:"-"`
}

// DeletionResult is the outcome of one ValidateDeletion call. Cascade
// analysis is report-only: Blocked reflects validation errors, never
// cascade counts.
type DeletionResult struct {
	Result  *validation.Result   `json:"result"`
	Cascade *store.CascadeReport `json:"cascade,omitempty"`
	Blocked bool                 `json:"blocked"`
}

// System is the validation orchestrator.
type System struct {
	cfg     *config.Config
	access  store.Access
	fk      ReferenceValidator
	engine  *rules.Engine
	monitor IntegrityChecker
	logger  *zap.Logger
	metrics *metrics.Collector

	mu              sync.Mutex
	initialized     bool
	modelValidators map[string]ModelValidator
}

// New constructs a System. Call Initialize before validating.
func New(
	cfg *config.Config,
	access store.Access,
	fk ReferenceValidator,
	engine *rules.Engine,
	monitor IntegrityChecker,
	logger *zap.Logger,
	collector *metrics.Collector,
) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		cfg:             cfg,
		access:          access,
		fk:              fk,
		engine:          engine,
		monitor:         monitor,
		logger:          logger,
		metrics:         collector,
		modelValidators: make(map[string]ModelValidator),
	}
}

// Initialize registers the built-in model validators and system rules.
// Idempotent: calling it twice never duplicates a registration.
func (s *System) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	s.modelValidators = make(map[string]ModelValidator)
	s.RegisterValidator(validators.NewListValidator(s.cfg.Validation, s.access, s.logger))
	s.RegisterValidator(validators.NewItemValidator(s.cfg.Validation, s.access, s.logger))

	if s.engine != nil {
		// AddRule overwrites by id, so re-running initialization
		// after Cleanup cannot double-register a rule.
		rules.RegisterBuiltins(s.engine, s.cfg.Validation, s.access, nil)
	}

	s.initialized = true
	s.logger.Info("validation system initialized",
		zap.Int("validators", len(s.modelValidators)))
	return nil
}

// RegisterValidator adds or replaces a model validator. Meant for startup
// wiring; not safe against concurrent validation traffic.
func (s *System) RegisterValidator(v ModelValidator) {
	s.modelValidators[v.Model()] = v
}

// Cleanup resets initialization state so Initialize can run again.
func (s *System) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.modelValidators = make(map[string]ModelValidator)
	s.logger.Info("validation system cleaned up")
}

// Initialized reports whether Initialize has run.
func (s *System) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// ValidateModel runs the staged validation pipeline for one payload:
// model validation always, foreign keys only if the model stage passed,
// business rules only if both prior stages passed.
func (s *System) ValidateModel(
	ctx context.Context,
	modelName string,
	data map[string]interface{},
	vctx *validation.Context,
) (*ModelResult, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if vctx == nil {
		vctx = &validation.Context{Operation: validation.OpCreate}
	}

	result := &ModelResult{Model: modelName, Data: data}

	validator, ok := s.modelValidators[modelName]
	if !ok {
		stage := validation.NewResult()
		stage.AddError(validation.Error{
			Field:   "model",
			Code:    validation.CodeValidatorNotFound,
			Message: fmt.Sprintf("no validator registered for model %q", modelName),
			Context: map[string]interface{}{"model": modelName},
		})
		result.Stages.Model = stage
		s.finish(result)
		return result, nil
	}

	switch vctx.Operation {
	case validation.OpUpdate:
		result.Stages.Model = validator.ValidateUpdate(ctx, data, vctx)
	case validation.OpDelete:
		id, _ := data["id"].(string)
		result.Stages.Model = validator.ValidateDelete(ctx, id, vctx)
	default:
		result.Stages.Model = validator.ValidateCreate(ctx, data, vctx)
	}

	if result.Stages.Model.OK() && s.cfg.Validation.EnableForeignKeyChecks && s.fk != nil {
		result.Stages.ForeignKeys = s.fk.ValidateReferences(ctx, modelName, data)
	}

	priorOK := result.Stages.Model.OK() &&
		(result.Stages.ForeignKeys == nil || result.Stages.ForeignKeys.OK())
	if priorOK && s.cfg.Validation.EnableBusinessRules && s.engine != nil {
		exec := s.engine.ExecuteRules(ctx, modelName, data, vctx)
		result.Stages.BusinessRules = exec.Result
		result.Data = exec.Data
		result.Outcomes = exec.Outcomes
		s.metrics.RecordRules(len(exec.Outcomes))
	}

	s.finish(result)
	s.metrics.RecordValidation(modelName, result.Valid)

	s.logger.Debug("model validation complete",
		zap.String("model", modelName),
		zap.String("operation", string(vctx.Operation)),
		zap.Bool("valid", result.Valid),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// finish derives Valid and the flattened error/warning views from the
// per-stage results.
func (s *System) finish(result *ModelResult) {
	result.Valid = true
	for _, stage := range []*validation.Result{
		result.Stages.Model,
		result.Stages.ForeignKeys,
		result.Stages.BusinessRules,
	} {
		if stage == nil {
			continue
		}
		if !stage.OK() {
			result.Valid = false
		}
		result.Errors = append(result.Errors, stage.Messages()...)
		result.Warnings = append(result.Warnings, stage.Warnings...)
	}
}

// ValidateDeletion validates a deletion and predicts its cascade. The
// analysis is read-only; nothing is deleted, and a non-empty cascade does
// not block by itself.
func (s *System) ValidateDeletion(
	ctx context.Context,
	modelName, id string,
	vctx *validation.Context,
) (*DeletionResult, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if vctx == nil {
		vctx = &validation.Context{Operation: validation.OpDelete}
	}
	vctx.Operation = validation.OpDelete

	out := &DeletionResult{Result: validation.NewResult()}

	validator, ok := s.modelValidators[modelName]
	if !ok {
		out.Result.AddError(validation.Error{
			Field:   "model",
			Code:    validation.CodeValidatorNotFound,
			Message: fmt.Sprintf("no validator registered for model %q", modelName),
		})
		out.Blocked = true
		return out, nil
	}

	out.Result = validator.ValidateDelete(ctx, id, vctx)

	if s.cfg.Validation.EnableBusinessRules && s.engine != nil {
		exec := s.engine.ExecuteRules(ctx, modelName, map[string]interface{}{"id": id}, vctx)
		out.Result.Merge(exec.Result)
	}

	if s.fk != nil {
		cascade, err := s.fk.AnalyzeCascade(ctx, modelName, id)
		if err != nil {
			out.Result.AddError(validation.Error{
				Field:   "id",
				Code:    validation.CodeFKConstraintError,
				Message: fmt.Sprintf("cascade analysis failed: %v", err),
			})
		} else {
			out.Cascade = cascade
		}
	}

	out.Blocked = !out.Result.OK()
	s.metrics.RecordValidation(modelName, !out.Blocked)
	return out, nil
}

// PerformIntegrityCheck delegates a full all-categories scan to the
// integrity monitor.
func (s *System) PerformIntegrityCheck(ctx context.Context) (*integrity.Report, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	if !s.cfg.Integrity.Enabled {
		return nil, ErrMonitoringDisabled
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.monitor.PerformIntegrityCheck(ctx, integrity.CheckConfig{
		Categories: integrity.AllCategories(),
		Tables:     s.cfg.Integrity.Tables,
		BatchSize:  s.cfg.Integrity.BatchSize,
		MaxErrors:  s.cfg.Integrity.MaxErrors,
	})
}

// withTimeout applies the configured operation deadline, if any. Awaited
// store lookups inherit it so a hung database cannot wedge a validation
// call.
func (s *System) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.OperationTimeout)
	}
	return ctx, func() {}
}

// Models returns the registered model names. Used by the CLI for input
// validation and usage messages.
func (s *System) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.modelValidators))
	for name := range s.modelValidators {
		names = append(names, name)
	}
	return names
}

// DefaultModels lists the model names the system registers on Initialize.
func DefaultModels() []string {
	return []string{model.ModelList, model.ModelItem}
}

package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/metrics"
	"github.com/taskward/taskward/internal/model"
	"github.com/taskward/taskward/internal/rules"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/validation"
)

// Monitor orchestrates system-wide integrity scans. It does not run a
// scheduler loop itself; the schedule registry only records what an
// external runner should trigger.
type Monitor struct {
	access   store.Access
	fk       *store.ForeignKeyManager
	engine   *rules.Engine
	defaults config.IntegrityConfig
	logger   *zap.Logger
	metrics  *metrics.Collector

	schedules *scheduleRegistry
}

// NewMonitor creates an integrity monitor. engine may be nil, which
// disables the business-rule compliance category; metrics may be nil.
func NewMonitor(
	access store.Access,
	fk *store.ForeignKeyManager,
	engine *rules.Engine,
	defaults config.IntegrityConfig,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		access:    access,
		fk:        fk,
		engine:    engine,
		defaults:  defaults,
		logger:    logger,
		metrics:   collector,
		schedules: newScheduleRegistry(),
	}
}

// scanState carries the running totals across sub-scans of one check.
type scanState struct {
	cfg            CheckConfig
	violations     []Violation
	warnings       []Violation
	recordsChecked int64
}

func (s *scanState) add(v Violation) {
	s.violations = append(s.violations, v)
}

func (s *scanState) warn(v Violation) {
	s.warnings = append(s.warnings, v)
}

// full reports whether the violation budget is spent.
func (s *scanState) full() bool {
	return len(s.violations) >= s.cfg.MaxErrors
}

// PerformIntegrityCheck runs every selected category as an independent
// sub-scan. A category that errors or panics contributes one critical
// synthetic violation and the remaining categories still run.
func (m *Monitor) PerformIntegrityCheck(ctx context.Context, cfg CheckConfig) (*Report, error) {
	m.normalize(&cfg)

	started := time.Now()
	state := &scanState{cfg: cfg}

	m.logger.Info("integrity check started",
		zap.Strings("tables", cfg.Tables),
		zap.Int("categories", len(cfg.Categories)))

	for _, category := range cfg.Categories {
		m.runCategory(ctx, category, state)
	}

	report := &Report{
		CheckID:    uuid.New().String(),
		Violations: state.violations,
		Warnings:   state.warnings,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	report.Summary = m.summarize(state, cfg)

	m.metrics.RecordScan(report.Duration, report.Summary.HealthScore)
	for _, v := range state.violations {
		m.metrics.RecordViolation(string(v.Type), string(v.Severity))
	}

	m.logger.Info("integrity check completed",
		zap.String("check_id", report.CheckID),
		zap.Int("violations", len(report.Violations)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("health_score", report.Summary.HealthScore),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (m *Monitor) normalize(cfg *CheckConfig) {
	if len(cfg.Categories) == 0 {
		cfg.Categories = AllCategories()
	}
	if len(cfg.Tables) == 0 {
		if len(m.defaults.Tables) > 0 {
			cfg.Tables = m.defaults.Tables
		} else {
			cfg.Tables = model.ScannableTables()
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = m.defaults.BatchSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = m.defaults.MaxErrors
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 1000
	}
}

// runCategory dispatches one sub-scan with fault containment.
func (m *Monitor) runCategory(ctx context.Context, category Category, state *scanState) {
	defer func() {
		if r := recover(); r != nil {
			m.recordScanFailure(category, state, fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	switch category {
	case CategoryForeignKeys:
		err = m.scanForeignKeys(ctx, state)
	case CategoryBusinessRules:
		err = m.scanBusinessRules(ctx, state)
	case CategoryOrphans:
		err = m.scanOrphans(ctx, state)
	case CategoryCircularRefs:
		err = m.scanCircularRefs(ctx, state)
	case CategoryConsistency:
		err = m.scanConsistency(ctx, state)
	case CategoryConstraints:
		err = m.scanConstraints(ctx, state)
	default:
		err = fmt.Errorf("unknown category: %s", category)
	}
	if err != nil {
		m.recordScanFailure(category, state, err)
	}
}

// recordScanFailure converts a broken sub-scan into one critical synthetic
// violation so the rest of the check can proceed.
func (m *Monitor) recordScanFailure(category Category, state *scanState, err error) {
	m.logger.Error("integrity sub-scan failed",
		zap.String("category", string(category)),
		zap.Error(err))
	state.add(Violation{
		Type:     violationTypeFor(category),
		Severity: SeverityCritical,
		Table:    "",
		Message:  fmt.Sprintf("%s scan failed: %v", category, err),
		Details:  map[string]interface{}{"category": string(category)},
	})
}

func violationTypeFor(category Category) ViolationType {
	switch category {
	case CategoryForeignKeys:
		return ViolationForeignKey
	case CategoryBusinessRules:
		return ViolationBusinessRule
	case CategoryOrphans:
		return ViolationOrphan
	case CategoryCircularRefs:
		return ViolationCircularRef
	case CategoryConsistency:
		return ViolationDataConsistency
	default:
		return ViolationConstraint
	}
}

// scanForeignKeys sweeps the reference map for broken references.
func (m *Monitor) scanForeignKeys(ctx context.Context, state *scanState) error {
	broken, err := m.fk.CheckViolations(ctx, state.cfg.Tables)
	if err != nil {
		return err
	}
	for _, b := range broken {
		if state.full() {
			return nil
		}
		state.add(Violation{
			Type:     ViolationForeignKey,
			Severity: SeverityHigh,
			Table:    b.Reference.FromTable,
			RecordID: b.RecordID,
			Field:    b.Reference.FromColumn,
			Message: fmt.Sprintf("%s.%s references missing %s record %q",
				b.Reference.FromTable, b.Reference.FromColumn, b.Reference.ToTable, b.Value),
			Details:      map[string]interface{}{"reference": b.Reference.String(), "value": b.Value},
			SuggestedFix: fmt.Sprintf("delete the row or restore %s record %q", b.Reference.ToTable, b.Value),
		})
	}
	return nil
}

// scanBusinessRules replays the engine's rules over persisted records in
// deterministic keyset batches.
func (m *Monitor) scanBusinessRules(ctx context.Context, state *scanState) error {
	if m.engine == nil {
		return nil
	}

	for _, table := range state.cfg.Tables {
		modelName := model.ModelForTable(table)
		if modelName == "" {
			continue
		}
		vctx := &validation.Context{Operation: validation.OpUpdate}

		afterID := ""
		for {
			batch, err := m.access.FetchBatch(ctx, table, afterID, state.cfg.BatchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}
			for _, record := range batch {
				state.recordsChecked++
				exec := m.engine.ExecuteRules(ctx, modelName, record, vctx)
				m.metrics.RecordRules(len(exec.Outcomes))
				for _, e := range exec.Result.Errors {
					if state.full() {
						return nil
					}
					state.add(Violation{
						Type:     ViolationBusinessRule,
						Severity: SeverityMedium,
						Table:    table,
						RecordID: record.ID(),
						Field:    e.Field,
						Message:  e.Message,
						Details:  e.Context,
					})
				}
				for _, w := range exec.Result.Warnings {
					state.warn(Violation{
						Type:     ViolationBusinessRule,
						Severity: SeverityLow,
						Table:    table,
						RecordID: record.ID(),
						Field:    w.Field,
						Message:  w.Message,
						Details:  w.Context,
					})
				}
			}
			afterID = batch[len(batch)-1].ID()
			if len(batch) < state.cfg.BatchSize {
				break
			}
		}
	}
	return nil
}

// scanOrphans finds records whose referenced owner disappeared.
func (m *Monitor) scanOrphans(ctx context.Context, state *scanState) error {
	if tableSelected(state.cfg.Tables, model.TableItems) {
		orphans, err := m.access.OrphanedItems(ctx)
		if err != nil {
			return err
		}
		for _, record := range orphans {
			if state.full() {
				return nil
			}
			state.add(Violation{
				Type:         ViolationOrphan,
				Severity:     SeverityHigh,
				Table:        model.TableItems,
				RecordID:     record.ID(),
				Field:        "listId",
				Message:      fmt.Sprintf("item %q belongs to a list that no longer exists", record.ID()),
				Details:      map[string]interface{}{"listId": record.String("listId")},
				SuggestedFix: "reassign the item to an existing list or delete it",
			})
		}
	}

	if tableSelected(state.cfg.Tables, model.TableLists) {
		orphans, err := m.access.OrphanedLists(ctx)
		if err != nil {
			return err
		}
		for _, record := range orphans {
			if state.full() {
				return nil
			}
			state.add(Violation{
				Type:         ViolationOrphan,
				Severity:     SeverityMedium,
				Table:        model.TableLists,
				RecordID:     record.ID(),
				Field:        "parentId",
				Message:      fmt.Sprintf("list %q references a parent that no longer exists", record.ID()),
				Details:      map[string]interface{}{"parentId": record.String("parentId")},
				SuggestedFix: "clear the parent reference or restore the parent list",
			})
		}
	}
	return nil
}

// scanCircularRefs detects cycles in the list hierarchy and the item
// dependency graph.
func (m *Monitor) scanCircularRefs(ctx context.Context, state *scanState) error {
	if tableSelected(state.cfg.Tables, model.TableLists) {
		if err := m.scanListCycles(ctx, state); err != nil {
			return err
		}
	}
	if tableSelected(state.cfg.Tables, model.TableItems) {
		if err := m.scanItemCycles(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) scanListCycles(ctx context.Context, state *scanState) error {
	afterID := ""
	for {
		batch, err := m.access.FetchBatch(ctx, model.TableLists, afterID, state.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, record := range batch {
			state.recordsChecked++
			if record.String("parentId") == "" {
				continue
			}
			ancestors, err := m.access.ListAncestors(ctx, record.ID(), 64)
			if err != nil {
				return err
			}
			for _, ancestor := range ancestors {
				if ancestor == record.ID() {
					if state.full() {
						return nil
					}
					state.add(Violation{
						Type:         ViolationCircularRef,
						Severity:     SeverityCritical,
						Table:        model.TableLists,
						RecordID:     record.ID(),
						Field:        "parentId",
						Message:      fmt.Sprintf("list %q is part of a parent cycle", record.ID()),
						SuggestedFix: "break the cycle by clearing one parent reference",
					})
					break
				}
			}
		}
		afterID = batch[len(batch)-1].ID()
		if len(batch) < state.cfg.BatchSize {
			break
		}
	}
	return nil
}

func (m *Monitor) scanItemCycles(ctx context.Context, state *scanState) error {
	afterID := ""
	for {
		batch, err := m.access.FetchBatch(ctx, model.TableItems, afterID, state.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, record := range batch {
			state.recordsChecked++
			cycle, err := m.dependsOnSelf(ctx, record.ID())
			if err != nil {
				return err
			}
			if cycle {
				if state.full() {
					return nil
				}
				state.add(Violation{
					Type:         ViolationCircularRef,
					Severity:     SeverityCritical,
					Table:        model.TableItems,
					RecordID:     record.ID(),
					Field:        "dependencies",
					Message:      fmt.Sprintf("item %q is part of a dependency cycle", record.ID()),
					SuggestedFix: "break the cycle by removing one dependency",
				})
			}
		}
		afterID = batch[len(batch)-1].ID()
		if len(batch) < state.cfg.BatchSize {
			break
		}
	}
	return nil
}

// dependsOnSelf walks the dependency graph depth-first looking for a path
// from the item back to itself.
func (m *Monitor) dependsOnSelf(ctx context.Context, id string) (bool, error) {
	visited := make(map[string]bool)
	var walk func(current string, depth int) (bool, error)
	walk = func(current string, depth int) (bool, error) {
		if depth <= 0 || visited[current] {
			return false, nil
		}
		visited[current] = true

		deps, err := m.access.ItemDependencies(ctx, current)
		if err != nil {
			return false, err
		}
		for _, dep := range deps {
			if dep == id {
				return true, nil
			}
			found, err := walk(dep, depth-1)
			if err != nil || found {
				return found, err
			}
		}
		return false, nil
	}
	return walk(id, 64)
}

// scanConsistency flags status/timestamp combinations that cannot both be
// true.
func (m *Monitor) scanConsistency(ctx context.Context, state *scanState) error {
	for _, table := range state.cfg.Tables {
		if model.ModelForTable(table) == "" {
			continue
		}
		afterID := ""
		for {
			batch, err := m.access.FetchBatch(ctx, table, afterID, state.cfg.BatchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}
			for _, record := range batch {
				state.recordsChecked++
				m.checkRecordConsistency(table, record, state)
				if state.full() {
					return nil
				}
			}
			afterID = batch[len(batch)-1].ID()
			if len(batch) < state.cfg.BatchSize {
				break
			}
		}
	}
	return nil
}

func (m *Monitor) checkRecordConsistency(table string, record store.Record, state *scanState) {
	status := record.String("status")
	completedAt := record.Time("completedAt")
	completed := status == string(model.ListCompleted) // same literal for items

	if completed && completedAt.IsZero() {
		state.warn(Violation{
			Type:     ViolationDataConsistency,
			Severity: SeverityLow,
			Table:    table,
			RecordID: record.ID(),
			Field:    "completedAt",
			Message:  fmt.Sprintf("record %q is completed but has no completion timestamp", record.ID()),
		})
	}
	if !completed && !completedAt.IsZero() {
		state.add(Violation{
			Type:         ViolationDataConsistency,
			Severity:     SeverityMedium,
			Table:        table,
			RecordID:     record.ID(),
			Field:        "completedAt",
			Message:      fmt.Sprintf("record %q has a completion timestamp but status %q", record.ID(), status),
			Details:      map[string]interface{}{"status": status},
			SuggestedFix: "clear completedAt or mark the record completed",
		})
	}

	created := record.Time("createdAt")
	updated := record.Time("updatedAt")
	if !created.IsZero() && !updated.IsZero() && updated.Before(created) {
		state.add(Violation{
			Type:     ViolationDataConsistency,
			Severity: SeverityMedium,
			Table:    table,
			RecordID: record.ID(),
			Field:    "updatedAt",
			Message:  fmt.Sprintf("record %q was updated before it was created", record.ID()),
			Details: map[string]interface{}{
				"createdAt": created,
				"updatedAt": updated,
			},
		})
	}
}

// scanConstraints checks structural invariants over persisted rows:
// required fields present, enum fields within their value sets.
func (m *Monitor) scanConstraints(ctx context.Context, state *scanState) error {
	for _, table := range state.cfg.Tables {
		modelName := model.ModelForTable(table)
		if modelName == "" {
			continue
		}
		afterID := ""
		for {
			batch, err := m.access.FetchBatch(ctx, table, afterID, state.cfg.BatchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}
			for _, record := range batch {
				state.recordsChecked++
				m.checkRecordConstraints(table, modelName, record, state)
				if state.full() {
					return nil
				}
			}
			afterID = batch[len(batch)-1].ID()
			if len(batch) < state.cfg.BatchSize {
				break
			}
		}
	}
	return nil
}

func (m *Monitor) checkRecordConstraints(table, modelName string, record store.Record, state *scanState) {
	if record.String("title") == "" {
		state.add(Violation{
			Type:     ViolationConstraint,
			Severity: SeverityMedium,
			Table:    table,
			RecordID: record.ID(),
			Field:    "title",
			Message:  fmt.Sprintf("record %q has an empty title", record.ID()),
		})
	}

	status := record.String("status")
	valid := false
	switch modelName {
	case model.ModelList:
		valid = model.ListStatus(status).Valid()
	case model.ModelItem:
		valid = model.ItemStatus(status).Valid()
	}
	if status != "" && !valid {
		state.add(Violation{
			Type:     ViolationConstraint,
			Severity: SeverityMedium,
			Table:    table,
			RecordID: record.ID(),
			Field:    "status",
			Message:  fmt.Sprintf("record %q has unknown status %q", record.ID(), status),
			Details:  map[string]interface{}{"status": status},
		})
	}

	if modelName == model.ModelItem {
		if priority := record.String("priority"); priority != "" && !model.Priority(priority).Valid() {
			state.add(Violation{
				Type:     ViolationConstraint,
				Severity: SeverityLow,
				Table:    table,
				RecordID: record.ID(),
				Field:    "priority",
				Message:  fmt.Sprintf("record %q has unknown priority %q", record.ID(), priority),
				Details:  map[string]interface{}{"priority": priority},
			})
		}
	}
}

// summarize derives the Summary from the accumulated state.
func (m *Monitor) summarize(state *scanState, cfg CheckConfig) Summary {
	summary := Summary{
		RecordsChecked: state.recordsChecked,
		TablesChecked:  cfg.Tables,
		ByType:         make(map[ViolationType]int),
		BySeverity:     make(map[Severity]int),
	}
	for _, v := range state.violations {
		summary.ByType[v.Type]++
		summary.BySeverity[v.Severity]++
	}
	summary.HealthScore = healthScore(state.violations, state.warnings)
	summary.Recommendations = recommendations(summary, len(state.warnings))
	return summary
}

func tableSelected(tables []string, table string) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}

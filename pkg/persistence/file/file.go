// Package file provides file-based persistence for the rule catalog and the
// execution ledger. It is intended for tests and local development; the
// idempotency claim is made atomic with a process-local lock, so it does not
// deduplicate across processes.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/driftline/automaton/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root          string
	ruleRepo      *RuleRepository
	executionRepo *ExecutionRepository
}

// NewPersistence creates a file persistence layer rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	executionRepo := NewExecutionRepository(cleanRoot)

	return &Persistence{
		root:          cleanRoot,
		ruleRepo:      NewRuleRepository(cleanRoot, executionRepo),
		executionRepo: executionRepo,
	}
}

// RuleRepository returns the rule catalog implementation.
func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.ruleRepo
}

// ExecutionRepository returns the execution ledger implementation.
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to release for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

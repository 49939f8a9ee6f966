package scripting

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicetab/internal/engine"
)

// Runner executes analysis scripts, one fresh sandboxed VM per script, with
// the dice module registered. Nothing persists between runs; a script cannot
// observe globals set by an earlier one.
type Runner struct {
	eng       *engine.Engine
	logger    *zap.Logger
	instLimit int
}

// NewRunner creates a Runner executing scripts against eng.
//
// Precondition: eng must be non-nil. A nil logger disables logging;
// instLimit <= 0 selects DefaultInstructionLimit.
func NewRunner(eng *engine.Engine, logger *zap.Logger, instLimit int) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{eng: eng, logger: logger, instLimit: instLimit}
}

// Run executes the Lua script at path in a fresh sandboxed VM.
//
// Postcondition: the VM is closed before returning; errors carry path context.
func (r *Runner) Run(path string) error {
	L, cancel := NewSandboxedState(r.instLimit)
	defer cancel()
	defer L.Close()
	RegisterDiceModule(L, r.eng)

	start := time.Now()
	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("scripting: running %q: %w", path, err)
	}
	r.logger.Debug("script completed",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

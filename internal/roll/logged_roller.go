package roll

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicetab/internal/expr"
)

// Roller wraps a Source and logger to provide logged dice rolling.
// Every sample is logged at debug level with expression, pool audits, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that samples with src and logs each roll
// to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll samples node and logs the result at debug level.
//
// Postcondition: result logged; returns RollResult or error.
func (r *Roller) Roll(node expr.Node) (RollResult, error) {
	result, err := Roll(node, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.log(result)
	return result, nil
}

// RollExpr parses input and samples it, logging the result.
//
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(input string) (RollResult, error) {
	node, err := expr.Parse(input)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(node)
}

func (r *Roller) log(result RollResult) {
	audits := make([]string, len(result.Pools))
	for i, p := range result.Pools {
		audits[i] = p.String()
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Strings("pools", audits),
		zap.Int("total", result.Total),
	)
}

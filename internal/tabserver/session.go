// Package tabserver provides the interactive query session served over
// the Telnet front door: expression tables, audited rolls, and presets.
package tabserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicetab/internal/dist"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/pool"
	"github.com/cory-johannsen/dicetab/internal/preset"
	"github.com/cory-johannsen/dicetab/internal/query"
	"github.com/cory-johannsen/dicetab/internal/roll"
	"github.com/cory-johannsen/dicetab/internal/storage/postgres"
	"github.com/cory-johannsen/dicetab/internal/telnet"
)

// DistributionCache defines the cache operations the session uses.
type DistributionCache interface {
	Get(ctx context.Context, expression string) (*postgres.CachedDistribution, error)
	Put(ctx context.Context, c *postgres.CachedDistribution) (*postgres.CachedDistribution, error)
	Touch(ctx context.Context, expression string) error
	Recent(ctx context.Context, limit int) ([]*postgres.CachedDistribution, error)
}

const welcomeBanner = `
` + telnet.Bold + telnet.BrightCyan + `
  ____  ___ ____ _____ _____  _    ____
 |  _ \|_ _/ ___| ____|_   _|/ \  | __ )
 | | | || | |   |  _|   | | / _ \ |  _ \
 | |_| || | |___| |___  | |/ ___ \| |_) |
 |____/|___\____|_____| |_/_/   \_\____/` + telnet.Reset + `

` + telnet.BrightYellow + `  Exact odds for tabletop dice expressions` + telnet.Reset + `

  Type an expression like ` + telnet.Green + `4d6kh3 + 2` + telnet.Reset + ` to see its outcome table.
  Type ` + telnet.Green + `roll 2d20kh1` + telnet.Reset + ` to throw the dice once.
  Type ` + telnet.Green + `help` + telnet.Reset + ` for everything else.
`

// Handler implements telnet.SessionHandler and processes the query command
// loop for a connected client.
type Handler struct {
	eng     *engine.Engine
	roller  *roll.Roller
	presets *preset.Registry
	cache   DistributionCache
	logger  *zap.Logger
}

// NewHandler creates a Handler serving query sessions.
//
// Precondition: eng, roller, presets, and logger must be non-nil. cache may
// be nil, which disables the result cache for all sessions.
// Postcondition: Returns a Handler ready to handle sessions.
func NewHandler(
	eng *engine.Engine,
	roller *roll.Roller,
	presets *preset.Registry,
	cache DistributionCache,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		eng:     eng,
		roller:  roller,
		presets: presets,
		cache:   cache,
		logger:  logger,
	}
}

// HandleSession implements telnet.SessionHandler. It shows the welcome banner
// and processes query commands until the client quits.
//
// Postcondition: Returns nil on clean quit, or an error if the session ended
// abnormally.
func (h *Handler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	sessionID := uuid.NewString()
	addr := conn.RemoteAddr().String()

	h.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("remote_addr", addr),
	)

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			h.logger.Info("session ended",
				zap.String("session_id", sessionID),
				zap.String("remote_addr", addr),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil

		case "help":
			h.showHelp(conn)

		case "roll":
			h.handleRoll(conn, strings.Join(args, " "))

		case "preset":
			if len(args) == 0 {
				h.listPresets(conn)
			} else {
				h.handlePreset(ctx, conn, args[0])
			}

		case "recent":
			h.handleRecent(ctx, conn)

		default:
			// Anything else is a dice expression.
			h.renderExpression(ctx, conn, line)
		}
	}
}

// renderExpression evaluates input and writes its outcome table and summary.
// The cache, when configured, is consulted by canonical rendering before the
// engine runs; cache failures only cost the shortcut.
func (h *Handler) renderExpression(ctx context.Context, conn *telnet.Conn, input string) {
	node, err := expr.Parse(input)
	if err != nil {
		h.writeEvalError(conn, err)
		return
	}
	canonical := node.String()

	d, hit := h.fromCache(ctx, canonical)
	if !hit {
		d, err = h.eng.Evaluate(node)
		if err != nil {
			h.writeEvalError(conn, err)
			return
		}
		h.toCache(ctx, canonical, d)
	}

	res := query.New(canonical, d)
	_ = conn.Write([]byte(query.RenderTable(res, query.TelnetStyle)))
	_ = conn.Write([]byte(query.RenderSummary(res, query.TelnetStyle)))
}

// handleRoll samples the expression once and shows the audited result.
func (h *Handler) handleRoll(conn *telnet.Conn, input string) {
	if input == "" {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: roll <expression>"))
		return
	}
	result, err := h.roller.RollExpr(input)
	if err != nil {
		h.writeEvalError(conn, err)
		return
	}
	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "%s", result))
}

// listPresets prints the preset library, one line per entry.
func (h *Handler) listPresets(conn *telnet.Conn) {
	all := h.presets.All()
	if len(all) == 0 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "No presets loaded."))
		return
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Presets:"))
	for _, p := range all {
		_ = conn.WriteLine("  " +
			telnet.Colorize(telnet.Green, fmt.Sprintf("%-16s", p.ID)) +
			fmt.Sprintf(" %-14s ", p.Canonical) +
			telnet.Colorize(telnet.Dim, p.Description))
	}
}

// handlePreset renders the outcome table for a named preset.
func (h *Handler) handlePreset(ctx context.Context, conn *telnet.Conn, id string) {
	p, ok := h.presets.Get(strings.ToLower(id))
	if !ok {
		_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown preset: %s. Type 'preset' to list them.", id))
		return
	}
	_ = conn.WriteLine(telnet.Colorf(telnet.BrightWhite, "%s — %s", p.Name, p.Description))
	h.renderExpression(ctx, conn, p.Canonical)
}

// handleRecent prints the most recently cached expressions.
func (h *Handler) handleRecent(ctx context.Context, conn *telnet.Conn) {
	if h.cache == nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "The result cache is disabled."))
		return
	}
	rows, err := h.cache.Recent(ctx, 10)
	if err != nil {
		h.logger.Warn("cache recent failed", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "The result cache is not reachable."))
		return
	}
	if len(rows) == 0 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Nothing cached yet."))
		return
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Recently cached:"))
	for _, c := range rows {
		_ = conn.WriteLine("  " +
			telnet.Colorize(telnet.Green, fmt.Sprintf("%-20s", c.Expression)) +
			telnet.Colorize(telnet.Dim, fmt.Sprintf(" hits %d", c.Hits)))
	}
}

// fromCache looks up the canonical expression, counting a hit on success.
func (h *Handler) fromCache(ctx context.Context, canonical string) (dist.Distribution, bool) {
	if h.cache == nil {
		return dist.Distribution{}, false
	}
	c, err := h.cache.Get(ctx, canonical)
	if err != nil {
		if !errors.Is(err, postgres.ErrDistributionNotFound) {
			h.logger.Warn("cache lookup failed",
				zap.String("expression", canonical),
				zap.Error(err),
			)
		}
		return dist.Distribution{}, false
	}
	if err := h.cache.Touch(ctx, canonical); err != nil {
		h.logger.Warn("cache touch failed",
			zap.String("expression", canonical),
			zap.Error(err),
		)
	}
	return c.Distribution(), true
}

// toCache stores the computed distribution under its canonical expression.
func (h *Handler) toCache(ctx context.Context, canonical string, d dist.Distribution) {
	if h.cache == nil {
		return
	}
	if _, err := h.cache.Put(ctx, postgres.NewCachedDistribution(canonical, d)); err != nil {
		h.logger.Warn("cache store failed",
			zap.String("expression", canonical),
			zap.Error(err),
		)
	}
}

// writeEvalError maps evaluation failures onto user-facing lines. Unexpected
// errors are logged and reported generically.
func (h *Handler) writeEvalError(conn *telnet.Conn, err error) {
	switch {
	case errors.Is(err, expr.ErrUnsupportedModifier):
		_ = conn.WriteLine(telnet.Colorf(telnet.Yellow,
			"Sorry, rerolls and exploding dice are not supported (%v).", err))
	case errors.Is(err, expr.ErrSyntax):
		_ = conn.WriteLine(telnet.Colorf(telnet.Red,
			"Can't parse that (%v). Try something like 4d6kh3 + 2.", err))
	case errors.Is(err, pool.ErrPoolTooLarge):
		_ = conn.WriteLine(telnet.Colorf(telnet.Red,
			"That pool is too large to analyze exactly (%v).", err))
	case errors.Is(err, pool.ErrModifierRange), errors.Is(err, pool.ErrInvalidDie),
		errors.Is(err, dist.ErrInvalidRange):
		_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Can't evaluate that: %v.", err))
	case errors.Is(err, dist.ErrDivisionByZero):
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That expression divides by zero."))
	default:
		h.logger.Error("evaluation error", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
	}
}

// showHelp prints the command reference.
func (h *Handler) showHelp(conn *telnet.Conn) {
	help := telnet.Colorize(telnet.BrightWhite, "Available commands:") + "\r\n" +
		telnet.Colorize(telnet.Green, "  <expression>") + "     — Show the outcome table (e.g. 2d6 + 3, 4d6kh3)\r\n" +
		telnet.Colorize(telnet.Green, "  roll <expression>") + " — Throw the dice once and show each die\r\n" +
		telnet.Colorize(telnet.Green, "  preset [name]") + "     — List presets, or show the table for one\r\n" +
		telnet.Colorize(telnet.Green, "  recent") + "            — Show recently cached expressions\r\n" +
		telnet.Colorize(telnet.Green, "  help") + "              — Show this help\r\n" +
		telnet.Colorize(telnet.Green, "  quit") + "              — Disconnect\r\n"
	_ = conn.Write([]byte(help))
}

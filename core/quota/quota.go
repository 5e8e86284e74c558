package quota

import (
	"fmt"
	"time"
)

// Tier classifies a caller. Each tier carries its own quota per action.
type Tier string

const (
	TierAnon  Tier = "anon"
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierAdmin Tier = "admin"
)

// knownTiers guards registration; request-time resolution never validates
// tiers because unknown tiers simply fall back to the base quota.
var knownTiers = map[Tier]struct{}{
	TierAnon:  {},
	TierFree:  {},
	TierPro:   {},
	TierAdmin: {},
}

// Action names a rate-limited operation, e.g. "generate" or "analyze".
type Action string

// Config is an immutable per-(action, tier) quota: at most MaxRequests
// admissions per fixed Window.
type Config struct {
	MaxRequests uint
	Window      time.Duration
}

func (c Config) valid() bool {
	return c.MaxRequests > 0 && c.Window > 0
}

// Definition registers the quota classes of one action.
//
// Base applies to every tier without an explicit override. GuestBurst, when
// set, is a stricter class enforced for anonymous callers of high-cost
// actions; it must be at least as strict as whatever the anon tier would
// otherwise resolve to.
type Definition struct {
	Action     Action
	Base       Config
	Overrides  map[Tier]Config
	GuestBurst *Config
}

// Table resolves effective quotas. It is built once at process start via
// NewTable and is read-only afterwards, so any number of request goroutines
// may call Resolve concurrently.
type Table struct {
	defs map[Action]Definition
}

// NewTable validates and indexes the given definitions. Every action the
// application rate-limits must be registered here; a malformed definition is
// a programming error surfaced at startup, never at request time.
func NewTable(defs ...Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, ErrNoDefinitions
	}

	indexed := make(map[Action]Definition, len(defs))
	for _, def := range defs {
		if def.Action == "" {
			return nil, fmt.Errorf("%w: empty action name", ErrInvalidDefinition)
		}
		if _, exists := indexed[def.Action]; exists {
			return nil, fmt.Errorf("%w: action %q registered twice", ErrInvalidDefinition, def.Action)
		}
		if !def.Base.valid() {
			return nil, fmt.Errorf("%w: action %q has invalid base quota", ErrInvalidDefinition, def.Action)
		}
		for tier, cfg := range def.Overrides {
			if _, ok := knownTiers[tier]; !ok {
				return nil, fmt.Errorf("%w: action %q overrides unknown tier %q", ErrInvalidDefinition, def.Action, tier)
			}
			if !cfg.valid() {
				return nil, fmt.Errorf("%w: action %q has invalid quota for tier %q", ErrInvalidDefinition, def.Action, tier)
			}
		}
		if def.GuestBurst != nil {
			if !def.GuestBurst.valid() {
				return nil, fmt.Errorf("%w: action %q has invalid guest burst quota", ErrInvalidDefinition, def.Action)
			}
			anon := def.anonBaseline()
			if def.GuestBurst.MaxRequests > anon.MaxRequests {
				return nil, fmt.Errorf("%w: action %q guest burst quota is looser than the anon quota", ErrInvalidDefinition, def.Action)
			}
		}
		indexed[def.Action] = def
	}

	return &Table{defs: indexed}, nil
}

// MustTable is NewTable that panics on error, for static registration at
// package init or in main.
func MustTable(defs ...Definition) *Table {
	t, err := NewTable(defs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the effective quota for the action and tier. Tiers without
// an explicit override use the action's base quota; anonymous callers of
// actions carrying a guest-burst class get the stricter class.
//
// An unknown action means the caller skipped registration, which NewTable
// exists to prevent; it is reported as ErrUnknownAction rather than a
// default quota so the defect cannot hide behind permissive limits.
func (t *Table) Resolve(action Action, tier Tier) (Config, error) {
	def, ok := t.defs[action]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if tier == TierAnon && def.GuestBurst != nil {
		return *def.GuestBurst, nil
	}
	if cfg, ok := def.Overrides[tier]; ok {
		return cfg, nil
	}
	return def.Base, nil
}

// Actions returns the registered action names, for startup assertions by
// callers that want to cross-check their routing table against the quota
// table.
func (t *Table) Actions() []Action {
	actions := make([]Action, 0, len(t.defs))
	for a := range t.defs {
		actions = append(actions, a)
	}
	return actions
}

// anonBaseline is what the anon tier would resolve to without a guest-burst
// class, used to validate that the class only ever tightens the quota.
func (d Definition) anonBaseline() Config {
	if cfg, ok := d.Overrides[TierAnon]; ok {
		return cfg
	}
	return d.Base
}

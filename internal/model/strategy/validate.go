package strategy

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrSchemaViolation marks structurally valid JSON that breaks the strategy schema.
var ErrSchemaViolation = errors.New("strategy schema violation")

const (
	maxRiskFlags      = 5
	maxRiskFlagLength = 60
)

// Payload is the wire shape the model is asked to produce. Pointer fields
// distinguish "missing" from zero values.
type Payload struct {
	Momentum        *string      `json:"momentum" jsonschema:"enum=Rising,enum=Flat,enum=Declining,enum=Stalling,enum=Unknown"`
	Balance         *string      `json:"balance" jsonschema:"enum=SelfLeading,enum=OtherLeading,enum=Balanced,enum=SelfChasing,enum=Unknown"`
	EnergyLevel     *string      `json:"energyLevel" jsonschema:"enum=low,enum=medium,enum=high"`
	SarcasmDetected *bool        `json:"sarcasmDetected"`
	IsKidding       *bool        `json:"isKidding"`
	RiskFlags       []string     `json:"riskFlags" jsonschema:"maxItems=5"`
	Move            *MovePayload `json:"move"`
}

// MovePayload is the wire shape of Move.
type MovePayload struct {
	Energy      *string             `json:"energy" jsonschema:"enum=pull_back,enum=match,enum=escalate,enum=clarify,enum=logistics"`
	OneLiner    *string             `json:"oneLiner" jsonschema:"maxLength=100"`
	Constraints *ConstraintsPayload `json:"constraints"`
	Risk        *string             `json:"risk" jsonschema:"enum=low,enum=medium,enum=high"`
}

// ConstraintsPayload is the wire shape of Constraints.
type ConstraintsPayload struct {
	NoQuestions *bool `json:"noQuestions"`
	KeepShort   *bool `json:"keepShort"`
	AddTease    *bool `json:"addTease"`
	PushMeetup  *bool `json:"pushMeetup"`
}

var (
	momenta  = []Momentum{MomentumRising, MomentumFlat, MomentumDeclining, MomentumStalling, MomentumUnknown}
	balances = []Balance{BalanceSelfLeading, BalanceOtherLeading, BalanceBalanced, BalanceSelfChasing, BalanceUnknown}
	energies = []Energy{EnergyPullBack, EnergyMatch, EnergyEscalate, EnergyClarify, EnergyLogistics}
	risks    = []Risk{RiskLow, RiskMedium, RiskHigh}
	levels   = []Level{LevelLow, LevelMedium, LevelHigh}
)

// Validate converts a decoded payload into a Result, or fails with
// ErrSchemaViolation. It never returns a partially populated Result.
func Validate(p Payload) (Result, error) {
	momentum, err := required("momentum", p.Momentum, momenta)
	if err != nil {
		return Result{}, err
	}
	balance, err := required("balance", p.Balance, balances)
	if err != nil {
		return Result{}, err
	}

	var level Level
	if p.EnergyLevel != nil && strings.TrimSpace(*p.EnergyLevel) != "" {
		if level, err = oneOf("energyLevel", *p.EnergyLevel, levels); err != nil {
			return Result{}, err
		}
	}

	flags, err := validateRiskFlags(p.RiskFlags)
	if err != nil {
		return Result{}, err
	}

	if p.Move == nil {
		return Result{}, violation("move is missing")
	}
	move, err := validateMove(*p.Move)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Momentum:        momentum,
		Balance:         balance,
		EnergyLevel:     level,
		SarcasmDetected: p.SarcasmDetected,
		IsKidding:       p.IsKidding,
		RiskFlags:       flags,
		Move:            move,
	}, nil
}

func validateMove(p MovePayload) (Move, error) {
	energy, err := required("move.energy", p.Energy, energies)
	if err != nil {
		return Move{}, err
	}
	risk, err := required("move.risk", p.Risk, risks)
	if err != nil {
		return Move{}, err
	}

	if p.OneLiner == nil {
		return Move{}, violation("move.oneLiner is missing")
	}
	oneLiner := strings.Join(strings.Fields(*p.OneLiner), " ")
	if oneLiner == "" {
		return Move{}, violation("move.oneLiner is empty")
	}
	if n := utf8.RuneCountInString(oneLiner); n > MaxOneLinerLength {
		return Move{}, violation(fmt.Sprintf("move.oneLiner has %d chars, max %d", n, MaxOneLinerLength))
	}

	c := p.Constraints
	if c == nil || c.NoQuestions == nil || c.KeepShort == nil || c.AddTease == nil || c.PushMeetup == nil {
		return Move{}, violation("move.constraints must set noQuestions, keepShort, addTease and pushMeetup")
	}

	return Move{
		Energy:   energy,
		OneLiner: oneLiner,
		Constraints: Constraints{
			NoQuestions: *c.NoQuestions,
			KeepShort:   *c.KeepShort,
			AddTease:    *c.AddTease,
			PushMeetup:  *c.PushMeetup,
		},
		Risk: risk,
	}, nil
}

func validateRiskFlags(raw []string) ([]string, error) {
	if len(raw) > maxRiskFlags {
		return nil, violation(fmt.Sprintf("riskFlags has %d entries, max %d", len(raw), maxRiskFlags))
	}
	var flags []string
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if utf8.RuneCountInString(f) > maxRiskFlagLength {
			return nil, violation(fmt.Sprintf("risk flag %q exceeds %d chars", f, maxRiskFlagLength))
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func required[T ~string](field string, raw *string, allowed []T) (T, error) {
	if raw == nil {
		return "", violation(field + " is missing")
	}
	return oneOf(field, *raw, allowed)
}

// oneOf matches case-insensitively and returns the canonical spelling.
func oneOf[T ~string](field, raw string, allowed []T) (T, error) {
	value := strings.TrimSpace(raw)
	for _, candidate := range allowed {
		if strings.EqualFold(value, string(candidate)) {
			return candidate, nil
		}
	}
	return "", violation(fmt.Sprintf("%s has unsupported value %q", field, raw))
}

func violation(msg string) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, msg)
}

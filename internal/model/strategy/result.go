package strategy

// Momentum is the model's read on where the thread is heading.
type Momentum string

const (
	MomentumRising    Momentum = "Rising"
	MomentumFlat      Momentum = "Flat"
	MomentumDeclining Momentum = "Declining"
	MomentumStalling  Momentum = "Stalling"
	MomentumUnknown   Momentum = "Unknown"
)

// Balance classifies investment asymmetry across the whole thread.
type Balance string

const (
	BalanceSelfLeading  Balance = "SelfLeading"
	BalanceOtherLeading Balance = "OtherLeading"
	BalanceBalanced     Balance = "Balanced"
	BalanceSelfChasing  Balance = "SelfChasing"
	BalanceUnknown      Balance = "Unknown"
)

// Energy is the recommended energy of the next move.
type Energy string

const (
	EnergyPullBack  Energy = "pull_back"
	EnergyMatch     Energy = "match"
	EnergyEscalate  Energy = "escalate"
	EnergyClarify   Energy = "clarify"
	EnergyLogistics Energy = "logistics"
)

// Risk is the risk level attached to a move.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Level is the optional observed energy level of the other side.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// MaxOneLinerLength bounds Move.OneLiner in characters.
const MaxOneLinerLength = 100

// SafeOneLiner is the directive used whenever no strategy could be trusted.
const SafeOneLiner = "too early to read, play it cool"

// Constraints are the hard generation flags of a move.
type Constraints struct {
	NoQuestions bool `json:"noQuestions"`
	KeepShort   bool `json:"keepShort"`
	AddTease    bool `json:"addTease"`
	PushMeetup  bool `json:"pushMeetup"`
}

// Move is the recommended next step.
type Move struct {
	Energy      Energy      `json:"energy"`
	OneLiner    string      `json:"oneLiner"`
	Constraints Constraints `json:"constraints"`
	Risk        Risk        `json:"risk"`
}

// Result is a schema-valid strategy. Values are built either by Validate or
// by SafeDefault; nothing else constructs one.
type Result struct {
	Momentum        Momentum `json:"momentum"`
	Balance         Balance  `json:"balance"`
	EnergyLevel     Level    `json:"energyLevel,omitempty"`
	SarcasmDetected *bool    `json:"sarcasmDetected,omitempty"`
	IsKidding       *bool    `json:"isKidding,omitempty"`
	RiskFlags       []string `json:"riskFlags,omitempty"`
	Move            Move     `json:"move"`
}

// SafeDefault returns the fixed fallback strategy.
func SafeDefault() Result {
	return Result{
		Momentum: MomentumUnknown,
		Balance:  BalanceUnknown,
		Move: Move{
			Energy:   EnergyMatch,
			OneLiner: SafeOneLiner,
			Constraints: Constraints{
				NoQuestions: false,
				KeepShort:   true,
				AddTease:    false,
				PushMeetup:  false,
			},
			Risk: RiskLow,
		},
	}
}

// IsSafeDefault reports whether r is the fallback strategy.
func IsSafeDefault(r Result) bool {
	safe := SafeDefault()
	return r.Momentum == safe.Momentum &&
		r.Balance == safe.Balance &&
		r.EnergyLevel == "" &&
		r.SarcasmDetected == nil &&
		r.IsKidding == nil &&
		len(r.RiskFlags) == 0 &&
		r.Move == safe.Move
}

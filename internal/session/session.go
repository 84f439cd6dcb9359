package session

import "github.com/shopspring/decimal"

// Flow names a multi-step conversation a user can be inside of.
type Flow string

const (
	FlowNone     Flow = ""
	FlowRegister Flow = "register"
	FlowExchange Flow = "exchange"
	FlowMethods  Flow = "payment_methods"
)

// Step names the current position inside a flow.
type Step string

const (
	StepNone Step = ""

	// register
	StepRegisterName  Step = "register_name"
	StepRegisterEmail Step = "register_email"
	StepRegisterPhone Step = "register_phone"

	// exchange
	StepSelectDirection Step = "select_direction"
	StepEnterAmount     Step = "enter_amount"
	StepCustomAmount    Step = "custom_amount"
	StepConfirmQuote    Step = "confirm_quote"
	StepSelectMethod    Step = "select_payment_method"
	StepAwaitProof      Step = "await_proof"
	StepManualReference Step = "manual_reference"

	// payment methods
	StepMethodType     Step = "method_type"
	StepMethodNickname Step = "method_nickname"
	StepMethodDetails  Step = "method_details"
)

// Session is the per-user conversation state. Scratch fields accumulate
// answers across steps and are dropped when the flow ends.
type Session struct {
	UserID int64 `json:"user_id"`
	Flow   Flow  `json:"flow,omitempty"`
	Step   Step  `json:"step,omitempty"`

	// register scratch
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`

	// exchange scratch
	Direction     string          `json:"direction,omitempty"`
	AmountUSD     decimal.Decimal `json:"amount_usd,omitempty"`
	CommissionUSD decimal.Decimal `json:"commission_usd,omitempty"`
	TotalUSD      decimal.Decimal `json:"total_usd,omitempty"`
	RateBs        decimal.Decimal `json:"rate_bs,omitempty"`
	TotalBs       decimal.Decimal `json:"total_bs,omitempty"`
	MethodID      int64           `json:"method_id,omitempty"`

	// payment methods scratch
	MethodType     string `json:"method_type,omitempty"`
	MethodNickname string `json:"method_nickname,omitempty"`

	// admin broadcast staging survives flow resets
	BroadcastText string `json:"broadcast_text,omitempty"`
}

// InFlow reports whether the session is inside an active flow.
func (s *Session) InFlow() bool {
	return s != nil && s.Flow != FlowNone
}

// Begin puts the session at the first step of a flow, clearing old scratch.
func (s *Session) Begin(flow Flow, step Step) {
	s.EndFlow()
	s.Flow = flow
	s.Step = step
}

// EndFlow clears the flow position and all flow scratch state.
// Staged broadcast text is preserved, it belongs to the admin, not a flow.
func (s *Session) EndFlow() {
	s.Flow = FlowNone
	s.Step = StepNone
	s.FullName = ""
	s.Email = ""
	s.Direction = ""
	s.AmountUSD = decimal.Zero
	s.CommissionUSD = decimal.Zero
	s.TotalUSD = decimal.Zero
	s.RateBs = decimal.Zero
	s.TotalBs = decimal.Zero
	s.MethodID = 0
	s.MethodType = ""
	s.MethodNickname = ""
}

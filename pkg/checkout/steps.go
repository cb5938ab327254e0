package checkout

// Step is a stage of the linear checkout flow.
type Step int

const (
	StepAddress Step = 1
	StepReview  Step = 2
	StepPayment Step = 3
	StepDone    Step = 4
)

// String returns the step name.
func (step Step) String() string {
	switch step {
	case StepAddress:
		return "address"
	case StepReview:
		return "review"
	case StepPayment:
		return "payment"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// previous returns the step Back moves to, if any.
func (step Step) previous() (Step, bool) {
	switch step {
	case StepReview:
		return StepAddress, true
	case StepPayment:
		return StepReview, true
	default:
		return step, false
	}
}

// editable reports whether address and promo may still change.
func (step Step) editable() bool {
	return step == StepAddress || step == StepReview
}

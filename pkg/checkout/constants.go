package checkout

const (
	priorityPercent      = 3
	priorityFixed        = 2
	priorityFreeShipping = 1

	defaultCurrencyCode = "INR"

	operationSelectAddress = "select_address"
	operationLoadSummary   = "load_summary"
	operationApplyPromo    = "apply_promo"
	operationAutoPromo     = "auto_promo"
	operationClearPromo    = "clear_promo"
	operationPlaceOrder    = "place_order"
	operationPay           = "pay"
	operationBack          = "back"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	errorOperationSession = "session"
	errorSubjectStep      = "step"
	errorSubjectPromo     = "promo"
	errorSubjectSummary   = "summary"
	errorCodePending      = "pending"
	errorCodeClosed       = "closed"
	errorCodeTransition   = "transition"
	errorCodeMissing      = "missing"
	errorCodeRejected     = "rejected"
)

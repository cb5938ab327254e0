package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Snapshot is an immutable view of a checkout session.
type Snapshot struct {
	Step              Step
	CartID            string
	AddressID         string
	Summary           *CheckoutSummary
	SelectedPromo     *Promo
	Effective         *EffectiveAmounts
	PromoAuto         bool
	PromoLockedByUser bool
	Order             *OrderReceipt
	Payment           *PaymentReceipt
	Pending           bool
	Notice            *Notice
}

// SelectedPromoCode returns the code of the selected promo, or "".
func (snapshot Snapshot) SelectedPromoCode() string {
	if snapshot.SelectedPromo == nil {
		return ""
	}
	return snapshot.SelectedPromo.Code
}

// Session drives one checkout through Address → Review → Payment → Done.
// At most one backend call is in flight; callers racing a pending call get ErrTransitionPending.
type Session struct {
	backend     Backend
	cartID      string
	composer    Composer
	paymentMode string
	logger      OperationLogger

	mutex             sync.Mutex
	step              Step
	pending           bool
	closed            bool
	cancelInflight    context.CancelFunc
	addressID         string
	summary           *CheckoutSummary
	selected          *Promo
	promoAuto         bool
	promoLockedByUser bool
	order             *OrderReceipt
	payment           *PaymentReceipt
	notice            *Notice
	subscribers       map[int]func(Snapshot)
	nextSubscriberID  int
}

// NewSession wires a Session for a cart.
func NewSession(backend Backend, cartID string, options ...SessionOption) (*Session, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend dependency is nil", ErrInvalidSessionConfig)
	}
	trimmedCartID := strings.TrimSpace(cartID)
	if trimmedCartID == "" {
		return nil, fmt.Errorf("%w: cart id is empty", ErrInvalidSessionConfig)
	}
	session := &Session{
		backend:     backend,
		cartID:      trimmedCartID,
		composer:    NewComposer(defaultCurrencyCode),
		step:        StepAddress,
		subscribers: map[int]func(Snapshot){},
	}
	for _, option := range options {
		if option != nil {
			option(session)
		}
	}
	return session, nil
}

// Snapshot returns the current state.
func (session *Session) Snapshot() Snapshot {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
func (session *Session) Subscribe(fn func(Snapshot)) func() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if fn == nil || session.closed {
		return func() {}
	}
	subscriberID := session.nextSubscriberID
	session.nextSubscriberID++
	session.subscribers[subscriberID] = fn
	return func() {
		session.mutex.Lock()
		defer session.mutex.Unlock()
		delete(session.subscribers, subscriberID)
	}
}

// Close aborts any in-flight backend call and drops late results.
func (session *Session) Close() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.closed {
		return
	}
	session.closed = true
	if session.cancelInflight != nil {
		session.cancelInflight()
		session.cancelInflight = nil
	}
	session.subscribers = map[int]func(Snapshot){}
}

// SelectAddress records the shipping address and fetches a fresh summary for it.
func (session *Session) SelectAddress(ctx context.Context, addressID string) error {
	trimmed := strings.TrimSpace(addressID)
	if trimmed == "" {
		return session.reject(ctx, operationSelectAddress, CodeAddressRequired,
			WrapError(errorOperationSession, errorSubjectStep, errorCodeMissing, ErrAddressRequired))
	}
	requestCtx, err := session.begin(ctx, func(step Step) bool { return step.editable() })
	if err != nil {
		return err
	}
	result := session.fetchSummary(requestCtx, trimmed)
	err = session.end(func() {
		session.applySummaryResult(trimmed, result)
	})
	if err == nil {
		err = result.err
	}
	session.logOperation(ctx, OperationLog{Operation: operationSelectAddress, AddressID: trimmed, Error: err})
	return err
}

// Next advances one step when the current step's prerequisite succeeds.
func (session *Session) Next(ctx context.Context) error {
	session.mutex.Lock()
	step := session.step
	addressID := session.addressID
	pending := session.pending
	session.mutex.Unlock()

	if pending {
		return WrapError(errorOperationSession, errorSubjectStep, errorCodePending, ErrTransitionPending)
	}
	switch step {
	case StepAddress:
		if addressID == "" {
			return session.reject(ctx, operationSelectAddress, CodeAddressRequired,
				WrapError(errorOperationSession, errorSubjectStep, errorCodeMissing, ErrAddressRequired))
		}
		return session.enterReview(ctx)
	case StepReview:
		return session.placeOrder(ctx)
	case StepPayment:
		return session.pay(ctx)
	default:
		return WrapError(errorOperationSession, errorSubjectStep, errorCodeTransition,
			fmt.Errorf("%w: no step after %s", ErrInvalidTransition, step))
	}
}

// Back returns to the immediately preceding step from Review or Payment.
func (session *Session) Back(ctx context.Context) error {
	session.mutex.Lock()
	if session.closed {
		session.mutex.Unlock()
		return WrapError(errorOperationSession, errorSubjectStep, errorCodeClosed, ErrSessionClosed)
	}
	if session.pending {
		session.mutex.Unlock()
		return WrapError(errorOperationSession, errorSubjectStep, errorCodePending, ErrTransitionPending)
	}
	previous, ok := session.step.previous()
	if !ok {
		step := session.step
		session.mutex.Unlock()
		return WrapError(errorOperationSession, errorSubjectStep, errorCodeTransition,
			fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, step))
	}
	session.step = previous
	session.notice = nil
	snapshot := session.snapshotLocked()
	subscribers := session.subscriberListLocked()
	session.mutex.Unlock()

	publish(subscribers, snapshot)
	session.logOperation(ctx, OperationLog{Operation: operationBack, Step: previous})
	return nil
}

// ApplyPromoCode applies a code typed by the shopper. It permanently disables
// auto-selection for this session whether or not the server accepts the code.
func (session *Session) ApplyPromoCode(ctx context.Context, rawCode string) error {
	code, err := NewPromoCode(rawCode)
	if err != nil {
		session.mutex.Lock()
		if guardErr := session.promoEditableLocked(); guardErr != nil {
			session.mutex.Unlock()
			return guardErr
		}
		session.promoLockedByUser = true
		session.promoAuto = false
		session.selected = nil
		session.order = nil
		session.notice = &Notice{Code: CodeInvalidOrExpired, Message: MessageFor(CodeInvalidOrExpired)}
		snapshot := session.snapshotLocked()
		subscribers := session.subscriberListLocked()
		session.mutex.Unlock()

		publish(subscribers, snapshot)
		session.logOperation(ctx, OperationLog{Operation: operationApplyPromo, Step: snapshot.Step, Error: err})
		return err
	}
	requestCtx, err := session.begin(ctx, func(step Step) bool { return step.editable() })
	if err != nil {
		return err
	}
	session.mutex.Lock()
	addressID := session.addressID
	session.mutex.Unlock()

	promo, applyErr := session.backend.ApplyPromo(requestCtx, PromoRequest{CartID: session.cartID, AddressID: addressID, Code: code.String()})
	err = session.end(func() {
		session.promoLockedByUser = true
		session.promoAuto = false
		session.order = nil
		if applyErr != nil {
			session.selected = nil
			session.notice = noticeFor(applyErr, CodeInvalidOrExpired)
			return
		}
		confirmed := session.confirmedPromo(promo, code.String())
		session.selected = &confirmed
		session.notice = nil
	})
	if err == nil && applyErr != nil {
		err = WrapError(errorOperationSession, errorSubjectPromo, errorCodeRejected, applyErr)
	}
	session.logOperation(ctx, OperationLog{Operation: operationApplyPromo, AddressID: addressID, PromoCode: code.String(), Error: err})
	return err
}

// ClearPromo removes the selected promo; auto-selection stays disabled afterwards.
func (session *Session) ClearPromo(ctx context.Context) error {
	session.mutex.Lock()
	if err := session.promoEditableLocked(); err != nil {
		session.mutex.Unlock()
		return err
	}
	session.selected = nil
	session.promoAuto = false
	session.promoLockedByUser = true
	session.order = nil
	session.notice = nil
	snapshot := session.snapshotLocked()
	subscribers := session.subscriberListLocked()
	session.mutex.Unlock()

	publish(subscribers, snapshot)
	session.logOperation(ctx, OperationLog{Operation: operationClearPromo})
	return nil
}

// promoEditableLocked refuses promo changes on a closed session, during a transition, or once the order step is past.
func (session *Session) promoEditableLocked() error {
	if session.closed {
		return WrapError(errorOperationSession, errorSubjectPromo, errorCodeClosed, ErrSessionClosed)
	}
	if session.pending {
		return WrapError(errorOperationSession, errorSubjectPromo, errorCodePending, ErrTransitionPending)
	}
	if !session.step.editable() {
		return WrapError(errorOperationSession, errorSubjectPromo, errorCodeTransition,
			fmt.Errorf("%w: promo is fixed at %s", ErrInvalidTransition, session.step))
	}
	return nil
}

func (session *Session) enterReview(ctx context.Context) error {
	requestCtx, err := session.begin(ctx, func(step Step) bool { return step == StepAddress })
	if err != nil {
		return err
	}
	session.mutex.Lock()
	addressID := session.addressID
	loaded := session.summary != nil
	session.mutex.Unlock()

	var result summaryResult
	if !loaded {
		result = session.fetchSummary(requestCtx, addressID)
	}
	err = session.end(func() {
		if !loaded {
			session.applySummaryResult(addressID, result)
			if result.err != nil {
				return
			}
		}
		session.step = StepReview
		session.notice = nil
	})
	if err == nil {
		err = result.err
	}
	session.logOperation(ctx, OperationLog{Operation: operationLoadSummary, AddressID: addressID, Step: StepReview, Error: err})
	return err
}

func (session *Session) placeOrder(ctx context.Context) error {
	requestCtx, err := session.begin(ctx, func(step Step) bool { return step == StepReview })
	if err != nil {
		return err
	}
	session.mutex.Lock()
	existing := session.order
	request := PlaceOrderRequest{CartID: session.cartID, AddressID: session.addressID}
	if session.selected != nil {
		request.PromoCode = session.selected.Code
	}
	session.mutex.Unlock()

	receipt := OrderReceipt{}
	var placeErr error
	if existing != nil {
		receipt = *existing
	} else {
		receipt, placeErr = session.backend.PlaceOrder(requestCtx, request)
	}
	err = session.end(func() {
		if placeErr != nil {
			session.notice = noticeFor(placeErr, CodeOrderFailed)
			return
		}
		session.order = &receipt
		session.step = StepPayment
		session.notice = nil
	})
	if err == nil && placeErr != nil {
		err = WrapError(errorOperationSession, errorSubjectStep, CodeOrderFailed, placeErr)
	}
	session.logOperation(ctx, OperationLog{
		Operation: operationPlaceOrder,
		AddressID: request.AddressID,
		PromoCode: request.PromoCode,
		OrderID:   receipt.OrderID,
		Step:      StepPayment,
		Error:     err,
	})
	return err
}

func (session *Session) pay(ctx context.Context) error {
	requestCtx, err := session.begin(ctx, func(step Step) bool { return step == StepPayment })
	if err != nil {
		return err
	}
	session.mutex.Lock()
	orderID := ""
	if session.order != nil {
		orderID = session.order.OrderID
	}
	session.mutex.Unlock()

	receipt, payErr := session.backend.Pay(requestCtx, PaymentRequest{OrderID: orderID, Mode: session.paymentMode})
	err = session.end(func() {
		if payErr != nil {
			session.notice = noticeFor(payErr, CodePaymentFailed)
			return
		}
		session.payment = &receipt
		session.step = StepDone
		session.notice = nil
	})
	if err == nil && payErr != nil {
		err = WrapError(errorOperationSession, errorSubjectStep, CodePaymentFailed, payErr)
	}
	session.logOperation(ctx, OperationLog{Operation: operationPay, OrderID: orderID, Step: StepDone, Error: err})
	return err
}

type summaryResult struct {
	summary   CheckoutSummary
	err       error
	autoPromo *Promo
	autoErr   error
}

// fetchSummary loads the summary and, unless the shopper took over promo
// selection, previews and confirms the best available promo.
func (session *Session) fetchSummary(ctx context.Context, addressID string) summaryResult {
	summary, err := session.backend.CheckoutSummary(ctx, SummaryRequest{CartID: session.cartID, AddressID: addressID})
	if err != nil {
		return summaryResult{err: WrapError(errorOperationSession, errorSubjectSummary, CodeSummaryError, err)}
	}
	result := summaryResult{summary: summary}

	session.mutex.Lock()
	locked := session.promoLockedByUser
	session.mutex.Unlock()
	if locked {
		return result
	}
	candidate, ok := PickBestPromo(summary.AvailablePromos, summary.Amounts.Subtotal, summary.Amounts.ShippingTotal)
	if !ok {
		return result
	}
	confirmed, err := session.backend.ApplyPromo(ctx, PromoRequest{CartID: session.cartID, AddressID: addressID, Code: candidate.Code})
	if err != nil {
		result.autoErr = err
		return result
	}
	merged := mergePromo(candidate, confirmed)
	result.autoPromo = &merged
	session.logOperation(ctx, OperationLog{Operation: operationAutoPromo, AddressID: addressID, PromoCode: merged.Code})
	return result
}

// applySummaryResult must run under the session mutex.
func (session *Session) applySummaryResult(addressID string, result summaryResult) {
	if result.err != nil {
		session.notice = noticeFor(result.err, CodeSummaryError)
		return
	}
	summary := result.summary
	if session.addressID != addressID {
		session.order = nil
	}
	session.addressID = addressID
	session.summary = &summary
	session.notice = nil
	if session.promoLockedByUser {
		return
	}
	switch {
	case result.autoErr != nil:
		session.selected = nil
		session.promoAuto = false
		session.promoLockedByUser = true
		session.notice = noticeFor(result.autoErr, CodeInvalidOrExpired)
	case result.autoPromo != nil:
		session.selected = result.autoPromo
		session.promoAuto = true
	default:
		session.selected = nil
		session.promoAuto = false
	}
	session.order = nil
}

// confirmedPromo must run under the session mutex.
func (session *Session) confirmedPromo(server Promo, code string) Promo {
	if session.summary != nil {
		if listed, ok := FindPromo(session.summary.AvailablePromos, code); ok {
			return mergePromo(listed, server)
		}
	}
	if strings.TrimSpace(server.Code) == "" {
		server.Code = code
	}
	return server
}

// mergePromo prefers server-confirmed fields over the locally listed ones.
func mergePromo(listed Promo, server Promo) Promo {
	merged := listed
	if server.ID != "" {
		merged.ID = server.ID
	}
	if server.Code != "" {
		merged.Code = server.Code
	}
	if server.Type != "" {
		merged.Type = server.Type
		merged.Value = server.Value
	}
	if server.MinOrderValue != nil {
		merged.MinOrderValue = server.MinOrderValue
	}
	return merged
}

func (session *Session) begin(ctx context.Context, allowed func(Step) bool) (context.Context, error) {
	session.mutex.Lock()
	if session.closed {
		session.mutex.Unlock()
		return nil, WrapError(errorOperationSession, errorSubjectStep, errorCodeClosed, ErrSessionClosed)
	}
	if session.pending {
		session.mutex.Unlock()
		return nil, WrapError(errorOperationSession, errorSubjectStep, errorCodePending, ErrTransitionPending)
	}
	if !allowed(session.step) {
		step := session.step
		session.mutex.Unlock()
		return nil, WrapError(errorOperationSession, errorSubjectStep, errorCodeTransition,
			fmt.Errorf("%w: not allowed at %s", ErrInvalidTransition, step))
	}
	requestCtx, cancel := context.WithCancel(ctx)
	session.pending = true
	session.cancelInflight = cancel
	snapshot := session.snapshotLocked()
	subscribers := session.subscriberListLocked()
	session.mutex.Unlock()

	publish(subscribers, snapshot)
	return requestCtx, nil
}

// end clears the pending flag and applies the call's outcome, unless the session was closed meanwhile.
func (session *Session) end(apply func()) error {
	session.mutex.Lock()
	if session.cancelInflight != nil {
		session.cancelInflight()
		session.cancelInflight = nil
	}
	session.pending = false
	if session.closed {
		session.mutex.Unlock()
		return WrapError(errorOperationSession, errorSubjectStep, errorCodeClosed, ErrSessionClosed)
	}
	apply()
	snapshot := session.snapshotLocked()
	subscribers := session.subscriberListLocked()
	session.mutex.Unlock()

	publish(subscribers, snapshot)
	return nil
}

// reject records a notice for a request refused before reaching the backend.
func (session *Session) reject(ctx context.Context, operation string, code string, err error) error {
	session.mutex.Lock()
	if session.closed {
		session.mutex.Unlock()
		return WrapError(errorOperationSession, errorSubjectStep, errorCodeClosed, ErrSessionClosed)
	}
	session.notice = &Notice{Code: code, Message: MessageFor(code)}
	snapshot := session.snapshotLocked()
	subscribers := session.subscriberListLocked()
	session.mutex.Unlock()

	publish(subscribers, snapshot)
	session.logOperation(ctx, OperationLog{Operation: operation, Step: snapshot.Step, Error: err})
	return err
}

func (session *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Step:              session.step,
		CartID:            session.cartID,
		AddressID:         session.addressID,
		PromoAuto:         session.promoAuto,
		PromoLockedByUser: session.promoLockedByUser,
		Pending:           session.pending,
	}
	if session.summary != nil {
		summary := *session.summary
		summary.Items = append([]LineItem(nil), session.summary.Items...)
		summary.AvailablePromos = append([]Promo(nil), session.summary.AvailablePromos...)
		snapshot.Summary = &summary
		effective := session.composer.Compose(summary.Amounts, session.selected)
		snapshot.Effective = &effective
	}
	if session.selected != nil {
		selected := *session.selected
		snapshot.SelectedPromo = &selected
	}
	if session.order != nil {
		order := *session.order
		snapshot.Order = &order
		if order.Amounts != (Amounts{}) {
			var base *Amounts
			if session.summary != nil {
				base = &session.summary.Amounts
			}
			settled := session.composer.Settle(order.Amounts, base, session.selected)
			snapshot.Effective = &settled
		}
	}
	if session.payment != nil {
		payment := *session.payment
		snapshot.Payment = &payment
	}
	if session.notice != nil {
		notice := *session.notice
		snapshot.Notice = &notice
	}
	return snapshot
}

func (session *Session) subscriberListLocked() []func(Snapshot) {
	subscribers := make([]func(Snapshot), 0, len(session.subscribers))
	for id := 0; id < session.nextSubscriberID; id++ {
		if fn, ok := session.subscribers[id]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	return subscribers
}

func publish(subscribers []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func (session *Session) logOperation(ctx context.Context, entry OperationLog) {
	if session.logger == nil {
		return
	}
	entry.CartID = session.cartID
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	session.logger.LogOperation(ctx, entry)
}

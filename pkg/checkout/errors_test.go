package checkout

import (
	"errors"
	"fmt"
	"testing"
)

const (
	operationName    = "session"
	subjectName      = "promo"
	codeName         = "rejected"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
	var operationError OperationError
	if !errors.As(wrappedError, &operationError) || operationError.Code() != codeName {
		test.Fatalf("expected OperationError with code %q, got %v", codeName, wrappedError)
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestMessageFor(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		code string
		want string
	}{
		{code: CodeInvalidOrExpired, want: "This promo code is invalid or has expired."},
		{code: CodeOrderValueTooLow, want: "Your order value is too low for this promo code."},
		{code: CodeMaxUserUsesReached, want: "You have already used this promo code the maximum number of times."},
		{code: " " + CodeSummaryError + " ", want: "We could not load your order summary. Please try again."},
		{code: "", want: genericMessage},
		{code: "teapot", want: genericMessage},
	}
	for _, testCase := range testCases {
		if got := MessageFor(testCase.code); got != testCase.want {
			test.Fatalf("code %q: expected %q, got %q", testCase.code, testCase.want, got)
		}
	}
}

func TestCodeOf(test *testing.T) {
	test.Parallel()
	wrapped := fmt.Errorf("outer: %w", WrapError(operationName, subjectName, codeName, codedError{code: CodeMaxUserUsesReached}))
	if code := CodeOf(wrapped, CodeGeneric); code != CodeMaxUserUsesReached {
		test.Fatalf("expected %q, got %q", CodeMaxUserUsesReached, code)
	}
	if code := CodeOf(errors.New("plain"), CodeOrderFailed); code != CodeOrderFailed {
		test.Fatalf("expected fallback, got %q", code)
	}
	if code := CodeOf(codedError{code: "  "}, CodePaymentFailed); code != CodePaymentFailed {
		test.Fatalf("expected fallback for blank code, got %q", code)
	}
}

package kot

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		name         string
		from         Status
		to           Status
		expectedCode ErrorCode
	}{
		{name: "pending to preparing", from: StatusPending, to: StatusPreparing},
		{name: "preparing to ready", from: StatusPreparing, to: StatusReady},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled},
		{name: "preparing to cancelled", from: StatusPreparing, to: StatusCancelled},
		{name: "ready to cancelled", from: StatusReady, to: StatusCancelled},
		{name: "skip preparing", from: StatusPending, to: StatusReady, expectedCode: ErrInvalidTransition},
		{name: "completed via advance from pending", from: StatusPending, to: StatusCompleted, expectedCode: ErrInvalidTransition},
		{name: "completed via advance from ready", from: StatusReady, to: StatusCompleted, expectedCode: ErrInvalidTransition},
		{name: "backwards", from: StatusReady, to: StatusPreparing, expectedCode: ErrInvalidTransition},
		{name: "completed is terminal", from: StatusCompleted, to: StatusPreparing, expectedCode: ErrTerminalState},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPending, expectedCode: ErrTerminalState},
		{name: "cancel a completed ticket", from: StatusCompleted, to: StatusCancelled, expectedCode: ErrTerminalState},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Transition(tc.from, tc.to)
			if tc.expectedCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var domainErr *Error
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if domainErr.Code != tc.expectedCode {
				t.Fatalf("expected code %s, got %s", tc.expectedCode, domainErr.Code)
			}
		})
	}
}

func TestCanComplete(t *testing.T) {
	if err := CanComplete(StatusReady); err != nil {
		t.Fatalf("ready ticket should be completable: %v", err)
	}

	for _, from := range []Status{StatusPending, StatusPreparing} {
		var domainErr *Error
		if err := CanComplete(from); !errors.As(err, &domainErr) || domainErr.Code != ErrInvalidTransition {
			t.Fatalf("expected INVALID_TRANSITION completing from %s, got %v", from, err)
		}
	}

	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		var domainErr *Error
		if err := CanComplete(from); !errors.As(err, &domainErr) || domainErr.Code != ErrTerminalState {
			t.Fatalf("expected TERMINAL_STATE completing from %s, got %v", from, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("PREPARING"); !ok {
		t.Fatal("PREPARING should parse")
	}
	if _, ok := ParseStatus("SERVED"); ok {
		t.Fatal("SERVED is an order status, not a ticket status")
	}
}

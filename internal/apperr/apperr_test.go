package apperr

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: CodeUnknownJob, Message: "no such job"},
			want: "no such job",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: CodeTransportError, Message: "upload failed", Cause: errors.New("connection reset")},
			want: "upload failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &AppError{Code: CodeTransportError, Message: "wrapped", Cause: cause}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructorsSetCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want Code
	}{
		{"InvalidClientID", InvalidClientID("missing client-id"), CodeInvalidClientID},
		{"WrongCommandFormat", WrongCommandFormat("expected 3 tokens, got %d", 2), CodeWrongCommandFormat},
		{"UnknownJob", UnknownJob("ARTICLE %s", "42"), CodeUnknownJob},
		{"UnknownWork", UnknownWork("ARTICLE %s", "42"), CodeUnknownWork},
		{"HandlerPermanentFailure", HandlerPermanentFailure(errors.New("404"), "fetch failed"), CodeHandlerPermanentFailure},
		{"TransportError", TransportError(errors.New("reset"), "upload failed"), CodeTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.want {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.want)
			}
		})
	}
}

func TestIsCheckers(t *testing.T) {
	err := UnknownWork("ARTICLE %s", "42")

	if !IsUnknownWork(err) {
		t.Error("IsUnknownWork() = false, want true")
	}
	if IsUnknownJob(err) {
		t.Error("IsUnknownJob() = true, want false")
	}
	if GetCode(err) != CodeUnknownWork {
		t.Errorf("GetCode() = %v, want %v", GetCode(err), CodeUnknownWork)
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode() on a non-AppError should return empty Code")
	}
}

func TestIsCheckersThroughWrapping(t *testing.T) {
	base := HandlerPermanentFailure(errors.New("404 not found"), "fetch failed")
	wrapped := errors.Join(base, errors.New("context"))

	if !IsHandlerPermanentFailure(wrapped) {
		t.Error("IsHandlerPermanentFailure() should see through errors.Join")
	}
}

package common

import (
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: fmt.Errorf("read capture: %w", ErrNotFound), want: codes.NotFound},
		{err: NewAppError("BAD_REQUEST", "text is required", ErrInvalidInput), want: codes.InvalidArgument},
		{err: ErrUnsupported, want: codes.FailedPrecondition},
		{err: ErrDuplicate, want: codes.AlreadyExists},
		{err: fmt.Errorf("boom"), want: codes.Internal},
		{err: NotFoundError("gone"), want: codes.NotFound},
	}
	for _, tt := range tests {
		if got := status.Code(ToStatus(tt.err)); got != tt.want {
			t.Fatalf("%v: expected %s, got %s", tt.err, tt.want, got)
		}
	}
	if ToStatus(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/8adimka/data-uploader/internal/errorsx"
)

var throttled = mongo.CommandError{
	Code:    16500,
	Name:    "TooManyRequests",
	Message: "Request rate is large. More Request Units may be needed, so no changes were made. Please retry this request later. RetryAfterMs=250",
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "code 16500", err: throttled, want: true},
		{name: "wrapped", err: fmt.Errorf("create: %w", throttled), want: true},
		{name: "message only", err: mongo.CommandError{Code: 1, Message: "TooManyRequests"}, want: true},
		{name: "other server error", err: mongo.CommandError{Code: 73, Message: "Invalid namespace"}, want: false},
		{name: "plain error", err: errors.New("Request rate is large"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	if got := RetryAfter(throttled); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
	if got := RetryAfter(errors.New("no hint")); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if got := RetryAfter(nil); got != 0 {
		t.Errorf("Expected 0 for nil, got %v", got)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	if !IsDuplicateKey(dup) {
		t.Error("Expected code 11000 to be a duplicate key")
	}
	if IsDuplicateKey(throttled) {
		t.Error("Expected throttling not to be a duplicate key")
	}
}

func TestClassify(t *testing.T) {
	network := mongo.CommandError{Code: 6, Labels: []string{"NetworkError"}, Message: "connection reset"}
	auth := mongo.CommandError{Code: 18, Name: "AuthenticationFailed", Message: "Authentication failed."}
	invalidNS := mongo.CommandError{Code: 73, Name: "InvalidNamespace", Message: "Invalid database name"}

	tests := []struct {
		name        string
		err         error
		wantConn    bool
		wantService bool
	}{
		{name: "network label", err: network, wantConn: true},
		{name: "authentication failed", err: auth, wantConn: true},
		{name: "deadline", err: context.DeadlineExceeded, wantConn: true},
		{name: "uri parse", err: errors.New(`error parsing uri: scheme must be "mongodb" or "mongodb+srv"`), wantConn: true},
		{name: "invalid namespace", err: invalidNS, wantService: true},
		{name: "throttled", err: throttled, wantService: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "mongodb://host", "db1")
			if errorsx.IsConnection(got) != tt.wantConn {
				t.Errorf("IsConnection = %v, want %v (%v)", errorsx.IsConnection(got), tt.wantConn, got)
			}
			if errorsx.IsService(got) != tt.wantService {
				t.Errorf("IsService = %v, want %v (%v)", errorsx.IsService(got), tt.wantService, got)
			}
			inner := errors.Unwrap(got)
			if inner == nil || inner.Error() != tt.err.Error() {
				t.Errorf("Expected the original error to stay in the chain, got %v", inner)
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	if Classify(nil, "", "") != nil {
		t.Error("Expected nil for nil")
	}

	if got := Classify(context.Canceled, "", "db1"); got != context.Canceled {
		t.Errorf("Expected cancellation unchanged, got %v", got)
	}

	already := &errorsx.ServiceError{Database: "db1", Err: errors.New("rejected")}
	if got := Classify(already, "", "db1"); got != already {
		t.Errorf("Expected classified error unchanged, got %v", got)
	}
}

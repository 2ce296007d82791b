package docstore

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/8adimka/data-uploader/internal/errorsx"
	"github.com/8adimka/data-uploader/internal/logging"
)

const appName = "data-uploader"

const cosmosHostSuffix = ".cosmos.azure.com"

// ClientPolicy is the client configuration every provisioned connection is built with.
type ClientPolicy struct {
	AllowBulkExecution  bool
	MaxRateLimitRetries int
	Serialization       SerializationPolicy

	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	ConnectTimeout time.Duration
}

// DefaultClientPolicy enables bulk execution and allows 10 retries on throttled requests.
func DefaultClientPolicy() ClientPolicy {
	return ClientPolicy{
		AllowBulkExecution:  true,
		MaxRateLimitRetries: 10,
		Serialization:       DefaultSerializationPolicy(),
		RetryBaseDelay:      500 * time.Millisecond,
		RetryMaxDelay:       5 * time.Second,
		ConnectTimeout:      10 * time.Second,
	}
}

// ClientOptions assembles driver options for the endpoint and credential.
//
// A nil endpoint leaves the driver's default address in place and a nil credential
// leaves authentication to whatever the endpoint carries. Neither is validated here:
// an unusable combination surfaces when the first request reaches the service.
//
// A credential becomes the password. The username is taken from the endpoint, or
// else, for a Cosmos DB host (*.cosmos.azure.com), from its first DNS label, which
// is the account name. Other hosts get no inferred username. For mongodb+srv
// endpoints the driver has already replaced the seed host with the resolved
// records, so the username belongs in the URI.
func ClientOptions(endpoint, credential *string, policy ClientPolicy) (*options.ClientOptions, error) {
	reg, err := NewRegistry(policy.Serialization)
	if err != nil {
		return nil, err
	}

	opts := options.Client().
		SetAppName(appName).
		SetRegistry(reg)

	if policy.ConnectTimeout > 0 {
		opts.SetConnectTimeout(policy.ConnectTimeout).
			SetServerSelectionTimeout(policy.ConnectTimeout)
	}

	if endpoint != nil {
		opts.ApplyURI(*endpoint)
	}

	if credential != nil {
		cred := options.Credential{}
		if opts.Auth != nil {
			cred = *opts.Auth
		}
		cred.Password = *credential
		cred.PasswordSet = true
		if cred.Username == "" {
			cred.Username = accountName(opts.Hosts)
		}
		opts.SetAuth(cred)
	}

	return opts, nil
}

// Connect builds the client for endpoint and credential under policy.
// The driver connects lazily, so an unreachable service is reported by the first request.
func Connect(ctx context.Context, endpoint, credential *string, policy ClientPolicy) (*mongo.Client, error) {
	opts, err := ClientOptions(endpoint, credential, policy)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, &errorsx.ConnectionError{Endpoint: EndpointLabel(endpoint), Err: err}
	}

	return client, nil
}

// EndpointLabel is the loggable form of an optional endpoint.
func EndpointLabel(endpoint *string) string {
	if endpoint == nil {
		return ""
	}
	return logging.RedactEndpoint(*endpoint)
}

func accountName(hosts []string) string {
	if len(hosts) == 0 {
		return ""
	}

	host := hosts[0]
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if !strings.HasSuffix(strings.ToLower(host), cosmosHostSuffix) {
		return ""
	}

	label, _, _ := strings.Cut(host, ".")
	return label
}

// String describes the policy for logs.
func (p ClientPolicy) String() string {
	return fmt.Sprintf("bulk=%t rate_limit_retries=%d omit_nulls=%t camel_case=%t",
		p.AllowBulkExecution, p.MaxRateLimitRetries, p.Serialization.OmitNullFields, p.Serialization.CamelCaseNames)
}

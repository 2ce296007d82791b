package provision

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/8adimka/data-uploader/internal/docstore"
)

// Handle references a provisioned database. The connection behind it belongs to
// the caller, who releases it with Close.
type Handle struct {
	*mongo.Database

	// Created is true only when this provisioning call created the database.
	Created bool

	policy docstore.ClientPolicy
}

// Policy returns the client policy the connection was configured with.
func (h *Handle) Policy() docstore.ClientPolicy {
	return h.policy
}

// BulkWriteOptions returns unordered bulk writes when bulk execution is allowed,
// letting the driver batch and send operations without waiting on each other.
func (h *Handle) BulkWriteOptions() *options.BulkWriteOptions {
	return options.BulkWrite().SetOrdered(!h.policy.AllowBulkExecution)
}

// InsertManyOptions applies the same ordering rule to InsertMany.
func (h *Handle) InsertManyOptions() *options.InsertManyOptions {
	return options.InsertMany().SetOrdered(!h.policy.AllowBulkExecution)
}

// Ping checks that the primary is reachable over the handle's connection.
func (h *Handle) Ping(ctx context.Context) error {
	return h.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client owned by the handle.
func (h *Handle) Close(ctx context.Context) error {
	return h.Client().Disconnect(ctx)
}

package provision

import (
	"context"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/8adimka/data-uploader/internal/docstore"
)

// BootstrapCollection holds the marker document that materializes a new database;
// the wire protocol only creates a database once it stores data.
const BootstrapCollection = "_provisioned"

const markerID = "database"

type databaseLister interface {
	ListDatabaseNames(ctx context.Context, filter interface{}, opts ...*options.ListDatabasesOptions) ([]string, error)
}

type markerInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// createIfNotExists reports whether it created the database. Only one caller can
// insert the marker, so a concurrent creator losing the race sees a duplicate key
// and counts the database as already existing.
func createIfNotExists(ctx context.Context, lister databaseLister, markers markerInserter, name string) (bool, error) {
	names, err := lister.ListDatabaseNames(ctx,
		bson.D{{Key: "name", Value: name}},
		options.ListDatabases().SetNameOnly(true).SetAuthorizedDatabases(true),
	)
	if err != nil {
		return false, err
	}
	if slices.Contains(names, name) {
		return false, nil
	}

	_, err = markers.InsertOne(ctx, bson.D{
		{Key: "_id", Value: markerID},
		{Key: "createdAt", Value: time.Now().UTC()},
	})
	switch {
	case err == nil:
		return true, nil
	case docstore.IsDuplicateKey(err):
		return false, nil
	default:
		return false, err
	}
}

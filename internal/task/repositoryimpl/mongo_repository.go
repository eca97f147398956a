package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kazz187/taskmanagement/internal/task"
	"github.com/kazz187/taskmanagement/pkg/cerr"
)

// ConnectMongo opens a client pinned to Stable API v1 and verifies the
// deployment answers a ping within timeout.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pingAdmin(pingCtx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func pingAdmin(ctx context.Context, client *mongo.Client) error {
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

type taskDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	Title        string             `bson:"title"`
	Descriptions string             `bson:"descriptions"`
	DateForm     string             `bson:"date_form"`
	DateToo      string             `bson:"date_too"`
	Priority     string             `bson:"priority"`
	Status       string             `bson:"status"`
}

func toDocument(t *task.Task) *taskDocument {
	return &taskDocument{
		Name:         t.Name,
		Email:        t.Email,
		Title:        t.Title,
		Descriptions: t.Descriptions,
		DateForm:     t.DateForm,
		DateToo:      t.DateToo,
		Priority:     t.Priority,
		Status:       t.Status,
	}
}

func (d *taskDocument) toTask() *task.Task {
	return &task.Task{
		ID: d.ID.Hex(),
		Fields: task.Fields{
			Name:         d.Name,
			Email:        d.Email,
			Title:        d.Title,
			Descriptions: d.Descriptions,
			DateForm:     d.DateForm,
			DateToo:      d.DateToo,
			Priority:     d.Priority,
		},
		Status: d.Status,
	}
}

// MongoRepository keeps one document per task in a single collection.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ task.Repository = (*MongoRepository)(nil)

func NewMongoRepository(client *mongo.Client, database, collection string) *MongoRepository {
	return &MongoRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, cerr.NewError(cerr.InvalidArgument, "invalid task id", err)
	}
	return oid, nil
}

func (r *MongoRepository) List(ctx context.Context, email string) ([]*task.Task, error) {
	filter := bson.D{}
	if email != "" {
		filter = bson.D{{Key: "email", Value: email}}
	}
	// ObjectIDs start with their creation second, so _id descending is newest first.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to find tasks: %w", err))
	}
	defer func() { _ = cur.Close(context.WithoutCancel(ctx)) }()

	tasks := []*task.Task{}
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			// Documents with non-string fields are skipped, not fatal to the listing.
			slog.WarnContext(ctx, "skipping task document", "id", cur.Current.Lookup("_id").String(), "error", err)
			continue
		}
		tasks = append(tasks, doc.toTask())
	}
	if err := cur.Err(); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to iterate tasks: %w", err))
	}
	return tasks, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	if err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to find task %s: %w", id, err))
	}
	return doc.toTask(), nil
}

func (r *MongoRepository) Insert(ctx context.Context, t *task.Task) (*task.InsertResult, error) {
	res, err := r.collection.InsertOne(ctx, toDocument(t))
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to insert task: %w", err))
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		t.ID = id.Hex()
	default:
		t.ID = fmt.Sprint(id)
	}
	return &task.InsertResult{Acknowledged: true, InsertedID: t.ID}, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id, status string) (*task.UpdateResult, error) {
	return r.updateOne(ctx, id, bson.D{{Key: "status", Value: status}})
}

func (r *MongoRepository) Replace(ctx context.Context, id string, f task.Fields) (*task.UpdateResult, error) {
	return r.updateOne(ctx, id, bson.D{
		{Key: "name", Value: f.Name},
		{Key: "email", Value: f.Email},
		{Key: "title", Value: f.Title},
		{Key: "descriptions", Value: f.Descriptions},
		{Key: "date_form", Value: f.DateForm},
		{Key: "date_too", Value: f.DateToo},
		{Key: "priority", Value: f.Priority},
	})
}

func (r *MongoRepository) updateOne(ctx context.Context, id string, set bson.D) (*task.UpdateResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to update task %s: %w", id, err))
	}
	out := &task.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		hex := oid.Hex()
		out.UpsertedID = &hex
	}
	return out, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (*task.DeleteResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	res, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	return &task.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return pingAdmin(ctx, r.client)
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoOps = map[Op]string{
	Eq:  "$eq",
	Lt:  "$lt",
	Lte: "$lte",
	Gt:  "$gt",
	Gte: "$gte",
}

// MongoCollection stores documents in MongoDB with string ids. Live queries
// use change streams, which need a replica set or sharded cluster.
type MongoCollection[T any, PT DocPtr[T]] struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoCollection binds a typed collection to db.
func NewMongoCollection[T any, PT DocPtr[T]](db *mongo.Database, name string) *MongoCollection[T, PT] {
	return &MongoCollection[T, PT]{collection: db.Collection(name), now: time.Now}
}

func (c *MongoCollection[T, PT]) Name() string { return c.collection.Name() }

func (c *MongoCollection[T, PT]) Add(ctx context.Context, doc *T) (string, error) {
	p := PT(doc)
	id := primitive.NewObjectID().Hex()
	p.SetDocID(id)
	p.StampCreated(c.now().UTC())
	if _, err := c.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.Name(), err)
	}
	return id, nil
}

func (c *MongoCollection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	err := c.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s/%s: %w", c.Name(), id, err)
	}
	return &out, nil
}

func (c *MongoCollection[T, PT]) Find(ctx context.Context, q Query) ([]T, error) {
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Direction == Desc {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := c.collection.Find(ctx, mongoFilter(q.Filters), findOptions)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err = cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return out, nil
}

// Subscribe opens a change stream on the collection and re-runs q after each
// change event, so every delivery is a full result set.
func (c *MongoCollection[T, PT]) Subscribe(ctx context.Context, q Query, onUpdate func([]T), onError func(error)) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", c.Name(), err)
	}

	docs, err := c.Find(ctx, q)
	if err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}
	onUpdate(docs)

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			docs, err := c.Find(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if onError != nil {
					onError(err)
				}
				continue
			}
			onUpdate(docs)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil && onError != nil {
			onError(fmt.Errorf("watch %s: %w", c.Name(), err))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (c *MongoCollection[T, PT]) Update(ctx context.Context, id string, fields map[string]any) error {
	res, err := c.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", c.Name(), id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoCollection[T, PT]) Delete(ctx context.Context, id string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.Name(), id, err)
	}
	return nil
}

// BatchUpdate applies the update inside a multi-document transaction and
// aborts it when any of ids is missing.
func (c *MongoCollection[T, PT]) BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	session, err := c.collection.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := c.collection.UpdateMany(sc, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M(fields)})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount != int64(len(ids)) {
			return nil, ErrNotFound
		}
		return res, nil
	})
	if err != nil {
		return fmt.Errorf("batch update %s: %w", c.Name(), err)
	}
	return nil
}

func mongoFilter(filters []Filter) bson.D {
	if len(filters) == 0 {
		return bson.D{}
	}
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, bson.M{f.Field: bson.M{mongoOps[f.Op]: f.Value}})
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

// Package mongo implements the low-level MongoDB client used by the history store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/fingerprint"
	"goa.design/voyage/runtime/trip/history"
)

type (
	// Client exposes Mongo-backed operations for the session history log.
	Client interface {
		health.Pinger

		Append(ctx context.Context, r *history.Record) error
		List(ctx context.Context, sessionID string) ([]*history.Record, error)
	}

	// Options configures the Mongo client implementation.
	Options struct {
		Client      *mongodriver.Client
		Database    string
		Collection  string
		CounterColl string
		Timeout     time.Duration
	}

	client struct {
		mongo    *mongodriver.Client
		records  collection
		counters collection
		timeout  time.Duration
	}

	recordDocument struct {
		ID          bson.ObjectID `bson:"_id,omitempty"`
		SessionID   string        `bson:"session_id"`
		Category    string        `bson:"category"`
		Fingerprint string        `bson:"fingerprint"`
		Status      string        `bson:"status"`
		Items       []trip.Item   `bson:"items,omitempty"`
		ErrorDetail string        `bson:"error_detail,omitempty"`
		Seq         int64         `bson:"seq"`
		CreatedAt   time.Time     `bson:"created_at"`
	}

	counterDocument struct {
		ID  string `bson:"_id"`
		Seq int64  `bson:"seq"`
	}
)

const (
	defaultCollection  = "trip_history"
	defaultCounterColl = "trip_history_counters"
	defaultTimeout     = 5 * time.Second
	clientName         = "history-mongo"
)

// New returns a Client backed by the provided MongoDB client.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	coll := opts.Collection
	if coll == "" {
		coll = defaultCollection
	}
	counterColl := opts.CounterColl
	if counterColl == "" {
		counterColl = defaultCounterColl
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db := opts.Client.Database(opts.Database)
	records := mongoCollection{coll: db.Collection(coll)}
	counters := mongoCollection{coll: db.Collection(counterColl)}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, records); err != nil {
		return nil, err
	}
	return newClientWithCollections(opts.Client, records, counters, timeout)
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	return c.mongo.Ping(ctx, readpref.Primary())
}

// Append implements the append-only contract: every record is a fresh insert
// with a store-assigned per-session sequence; nothing is ever updated in
// place.
func (c *client) Append(ctx context.Context, r *history.Record) error {
	if r == nil {
		return errors.New("record is required")
	}
	if r.SessionID == "" {
		return errors.New("session id is required")
	}
	if r.Category == "" {
		return errors.New("category is required")
	}
	if r.Status == "" {
		return errors.New("status is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	seq, err := c.nextSeq(ctx, r.SessionID)
	if err != nil {
		return fmt.Errorf("allocate sequence for %s: %w", r.SessionID, err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := recordDocument{
		SessionID:   r.SessionID,
		Category:    string(r.Category),
		Fingerprint: string(r.Fingerprint),
		Status:      string(r.Status),
		Items:       append([]trip.Item(nil), r.Items...),
		ErrorDetail: r.ErrorDetail,
		Seq:         seq,
		CreatedAt:   createdAt.UTC(),
	}
	res, err := c.records.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	r.ID = oid.Hex()
	r.Seq = seq
	r.CreatedAt = doc.CreatedAt
	return nil
}

// List implements history.Store: all records for the session, oldest first.
func (c *client) List(ctx context.Context, sessionID string) (records []*history.Record, err error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cur, err := c.records.Find(ctx, bson.M{"session_id": sessionID}, options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cur.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()

	for cur.Next(ctx) {
		var doc recordDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, &history.Record{
			ID:          doc.ID.Hex(),
			SessionID:   doc.SessionID,
			Category:    trip.Category(doc.Category),
			Fingerprint: fingerprint.Fingerprint(doc.Fingerprint),
			Status:      history.Status(doc.Status),
			Items:       append([]trip.Item(nil), doc.Items...),
			ErrorDetail: doc.ErrorDetail,
			Seq:         doc.Seq,
			CreatedAt:   doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// nextSeq atomically increments the per-session counter and returns the new
// value.
func (c *client) nextSeq(ctx context.Context, sessionID string) (int64, error) {
	res := c.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc counterDocument
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "seq", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

func newClientWithCollections(mongoClient *mongodriver.Client, records, counters collection, timeout time.Duration) (*client, error) {
	if records == nil {
		return nil, errors.New("records collection is required")
	}
	if counters == nil {
		return nil, errors.New("counters collection is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		mongo:    mongoClient,
		records:  records,
		counters: counters,
		timeout:  timeout,
	}, nil
}

type collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error)
	FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) singleResult
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document, opts...)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursor{cur: cur}, nil
}

func (c mongoCollection) FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) singleResult {
	return c.coll.FindOneAndUpdate(ctx, filter, update, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoCursor struct {
	cur *mongodriver.Cursor
}

func (c mongoCursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

func (c mongoCursor) Decode(val any) error {
	return c.cur.Decode(val)
}

func (c mongoCursor) Err() error {
	return c.cur.Err()
}

func (c mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}

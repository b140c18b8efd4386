// Package mongo persists the yard store to MongoDB, one collection per entity kind.
package mongo

import (
	"context"
	"fmt"
	"time"
	"yardops/internal/infra/persistence/memory"
	"yardops/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.AtomicBatcher   = (*Store)(nil)
)

const (
	defaultURI    = "mongodb://localhost:27017"
	defaultDBName = "yardops"
	opTimeout     = 10 * time.Second
)

// Store mirrors the in-memory store into MongoDB. On a replica set or behind
// mongos every commit is written inside one multi-document transaction. A
// standalone server has no transactions, so SupportsAtomicBatch reports false
// and multi-step workflows fall back to ordered sequential writes.
type Store struct {
	*memory.Store
	client *mongo.Client
	db     *mongo.Database
	txns   bool
}

// helloReply holds the fields of the hello command that reveal topology.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// supportsTransactions reports whether the server answering hello can run
// multi-document transactions.
func (h helloReply) supportsTransactions() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// NewStore connects to uri, selects dbName and hydrates the memory store.
func NewStore(ctx context.Context, uri, dbName string, engine *domain.RulesEngine) (*Store, error) {
	if uri == "" {
		uri = defaultURI
	}
	if dbName == "" {
		dbName = defaultDBName
	}
	connectCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	var hello helloReply
	if err := client.Database("admin").RunCommand(connectCtx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo hello: %w", err)
	}
	s := &Store{client: client, db: client.Database(dbName), txns: hello.supportsTransactions()}
	s.Store = memory.NewStore(engine, memory.WithCommitHook(s.persist))
	snapshot, err := s.load(ctx)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.ImportState(snapshot)
	return s, nil
}

// SupportsAtomicBatch reports whether cross-collection writes commit together.
func (s *Store) SupportsAtomicBatch() bool { return s.txns }

// Database exposes the selected database for integration testing hooks.
func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) load(ctx context.Context) (memory.Snapshot, error) {
	snapshot := memory.Snapshot{}
	for _, kind := range domain.AllKinds() {
		cursor, err := s.db.Collection(string(kind)).Find(ctx, bson.D{})
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", kind, err)
		}
		var recs []domain.Record
		for cursor.Next(ctx) {
			rec := kind.New()
			if err := cursor.Decode(rec); err != nil {
				_ = cursor.Close(ctx)
				return nil, fmt.Errorf("decode %s: %w", kind, err)
			}
			recs = append(recs, rec)
		}
		err = cursor.Err()
		_ = cursor.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("iterate %s: %w", kind, err)
		}
		snapshot[kind] = recs
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, changed []domain.EntityKind, next memory.Snapshot) error {
	if !s.txns {
		return s.writeKinds(ctx, changed, next)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return domain.StoreWriteError{Op: "start session", Err: err}
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, s.writeKinds(sc, changed, next)
	})
	return err
}

func (s *Store) writeKinds(ctx context.Context, changed []domain.EntityKind, next memory.Snapshot) error {
	for _, kind := range changed {
		models := writeModels(next.Records(kind))
		opts := options.BulkWrite().SetOrdered(true)
		if _, err := s.db.Collection(string(kind)).BulkWrite(ctx, models, opts); err != nil {
			return domain.StoreWriteError{Op: "bulk write " + string(kind), Err: err}
		}
	}
	return nil
}

// writeModels replaces every current record and removes documents no longer present.
func writeModels(recs []domain.Record) []mongo.WriteModel {
	ids := make(bson.A, 0, len(recs))
	models := make([]mongo.WriteModel, 0, len(recs)+1)
	for _, rec := range recs {
		ids = append(ids, rec.GetID())
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": rec.GetID()}).
			SetReplacement(rec).
			SetUpsert(true))
	}
	models = append(models, mongo.NewDeleteManyModel().SetFilter(bson.M{"_id": bson.M{"$nin": ids}}))
	return models
}

// Close ends subscriptions and disconnects the client.
func (s *Store) Close() error {
	_ = s.Store.Close()
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

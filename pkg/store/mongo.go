package store

import (
	"context"
	"encoding/json"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// MongoStore is a MongoDB-backed package database.
//
// Documents wrap the JSON-encoded record rather than mapping it to BSON
// field-by-field: parameter values are a tagged union with custom JSON
// marshalling, and storing the canonical JSON keeps one serialization for
// all backends. The package name is duplicated into the wrapper for
// indexed name queries.
//
// Merges use $setOnInsert upserts, so re-merging an existing hash never
// clobbers the stored record.
type MongoStore struct {
	client    *mongo.Client
	specs     *mongo.Collection
	compilers *mongo.Collection
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// specDoc is the wrapper document for one stored spec record.
type specDoc struct {
	Hash string `bson:"_id"`
	Name string `bson:"name"`
	Data []byte `bson:"data"`
}

// compilerDoc is the wrapper document for one stored compiler spec.
type compilerDoc struct {
	Key  string `bson:"_id"`
	Data []byte `bson:"data"`
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	dbName := cfg.Database
	if dbName == "" {
		dbName = "depot"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb at %s", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb at %s", cfg.URI)
	}
	db := client.Database(dbName)
	return &MongoStore{
		client:    client,
		specs:     db.Collection("specs"),
		compilers: db.Collection("compilers"),
	}, nil
}

// QueryByHash returns the linked spec with the given hash.
func (m *MongoStore) QueryByHash(ctx context.Context, hash string) (*spec.Spec, error) {
	return loadSpec(ctx, hash, m.get)
}

// QueryByName returns all linked specs carrying the given package name.
func (m *MongoStore) QueryByName(ctx context.Context, name string) ([]*spec.Spec, error) {
	cur, err := m.specs.Find(ctx, bson.M{"name": name})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "query name %q", name)
	}
	var docs []specDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode name query %q", name)
	}

	hashes := make([]string, len(docs))
	for i, doc := range docs {
		hashes[i] = doc.Hash
	}
	slices.Sort(hashes)

	var out []*spec.Spec
	for _, hash := range hashes {
		s, err := loadSpec(ctx, hash, m.get)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Compilers returns all merged compiler specs, ordered by key.
func (m *MongoStore) Compilers(ctx context.Context) ([]spec.Compiler, error) {
	cur, err := m.compilers.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list compilers")
	}
	var docs []compilerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode compilers")
	}

	out := make([]spec.Compiler, 0, len(docs))
	for _, doc := range docs {
		var c spec.Compiler
		if err := json.Unmarshal(doc.Data, &c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "decode compiler %q", doc.Key)
		}
		out = append(out, c)
	}
	return out, nil
}

// Merge upserts all batch records with $setOnInsert semantics.
func (m *MongoStore) Merge(ctx context.Context, batch *Batch) (*MergeStats, error) {
	stats := &MergeStats{}

	for _, s := range batch.Specs {
		data, err := json.Marshal(s.Record())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "encode spec %q", s.Hash)
		}
		res, err := m.specs.UpdateOne(ctx,
			bson.M{"_id": s.Hash},
			bson.M{"$setOnInsert": specDoc{Hash: s.Hash, Name: s.Name, Data: data}},
			options.Update().SetUpsert(true))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "merge spec %q", s.Hash)
		}
		if res.UpsertedCount > 0 {
			stats.SpecsAdded++
		} else {
			stats.SpecsSkipped++
		}
	}

	for _, c := range batch.Compilers {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "encode compiler %q", c.Key())
		}
		res, err := m.compilers.UpdateOne(ctx,
			bson.M{"_id": c.Key()},
			bson.M{"$setOnInsert": compilerDoc{Key: c.Key(), Data: data}},
			options.Update().SetUpsert(true))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "merge compiler %q", c.Key())
		}
		if res.UpsertedCount > 0 {
			stats.CompilersAdded++
		} else {
			stats.CompilersSkipped++
		}
	}

	return stats, nil
}

// Close disconnects from MongoDB.
func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

// get implements recordGetter.
func (m *MongoStore) get(ctx context.Context, hash string) (spec.Record, bool, error) {
	var doc specDoc
	err := m.specs.FindOne(ctx, bson.M{"_id": hash}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return spec.Record{}, false, nil
	}
	if err != nil {
		return spec.Record{}, false, errors.Wrap(errors.ErrCodeStore, err, "load spec %q", hash)
	}
	var rec spec.Record
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return spec.Record{}, false, errors.Wrap(errors.ErrCodeStore, err, "decode spec %q", hash)
	}
	return rec, true, nil
}

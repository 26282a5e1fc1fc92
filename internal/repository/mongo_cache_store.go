package repository

import (
	"context"
	"errors"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCacheStore is a CacheStore backed by the cache_entries and
// cache_usage collections.
type MongoCacheStore struct {
	db      *MongoDB
	entries *mongo.Collection
	usage   *mongo.Collection
}

// NewMongoCacheStore creates a cache store on an open MongoDB connection.
func NewMongoCacheStore(db *MongoDB) *MongoCacheStore {
	return &MongoCacheStore{
		db:      db,
		entries: db.Entries,
		usage:   db.Usage,
	}
}

func entryFilter(key string, kind model.RequestKind) bson.D {
	return bson.D{{Key: "key", Value: key}, {Key: "request_kind", Value: kind}}
}

// Get returns the stored document for (key, kind).
func (s *MongoCacheStore) Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	err := s.entries.FindOne(ctx, entryFilter(key, kind)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrEntryNotFound
	}
	if err != nil {
		return nil, model.NewStoreError(OpGet, err)
	}
	normalizeEntryTimes(&entry)
	return &entry, nil
}

// Put replaces the document for (key, kind), inserting it when absent.
func (s *MongoCacheStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.entries.ReplaceOne(ctx, entryFilter(entry.Key, entry.Kind), entry, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on the unique index; the retry hits the existing document.
		_, err = s.entries.ReplaceOne(ctx, entryFilter(entry.Key, entry.Kind), entry, opts)
	}
	return model.NewStoreError(OpPut, err)
}

// BulkPut upserts all entries with one unordered BulkWrite.
func (s *MongoCacheStore) BulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	entries = dedupeEntries(entries)
	if len(entries) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(entryFilter(e.Key, e.Kind)).
			SetReplacement(e).
			SetUpsert(true))
	}

	_, err := s.entries.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return model.NewStoreError(OpBulkPut, err)
}

// IncrementHits applies $inc updates in one unordered BulkWrite.
func (s *MongoCacheStore) IncrementHits(ctx context.Context, hits []model.HitIncrement) error {
	if len(hits) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(hits))
	for _, h := range hits {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(entryFilter(h.Key, h.Kind)).
			SetUpdate(bson.D{
				{Key: "$inc", Value: bson.D{{Key: "hit_count", Value: h.Count}}},
				{Key: "$max", Value: bson.D{{Key: "last_hit_at", Value: h.At.UTC()}}},
			}))
	}

	_, err := s.entries.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return model.NewStoreError(OpIncrementHits, err)
}

// DeleteExpired removes documents with expires_at before the cutoff.
func (s *MongoCacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.entries.DeleteMany(ctx, bson.D{
		{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: before.UTC()}}},
	})
	if err != nil {
		return 0, model.NewStoreError(OpDeleteExpired, err)
	}
	return res.DeletedCount, nil
}

type kindCount struct {
	Kind    model.RequestKind `bson:"_id"`
	Total   int64             `bson:"total"`
	Expired int64             `bson:"expired"`
}

type usageTotals struct {
	Hits        int64 `bson:"hits"`
	Misses      int64 `bson:"misses"`
	StoreErrors int64 `bson:"store_errors"`
}

type collStats struct {
	StorageStats struct {
		Size int64 `bson:"size"`
	} `bson:"storageStats"`
}

// AggregateStats reports entry counts by kind, storage size and window usage.
func (s *MongoCacheStore) AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error) {
	stats := model.AggregateStats{
		EntriesByKind: make(map[model.RequestKind]int64),
		Window:        window.String(),
	}
	now = now.UTC()

	cursor, err := s.entries.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$request_kind"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "expired", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{bson.D{{Key: "$lte", Value: bson.A{"$expires_at", now}}}, 1, 0}},
			}}}},
		}}},
	})
	if err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}
	var counts []kindCount
	if err := cursor.All(ctx, &counts); err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}
	for _, c := range counts {
		stats.EntriesByKind[c.Kind] = c.Total
		stats.TotalEntries += c.Total
		stats.ExpiredEntries += c.Expired
	}

	stats.StorageSizeBytes = s.storageSize(ctx)

	cursor, err = s.usage.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "bucket", Value: bson.D{
			{Key: "$gte", Value: usageWindowStart(window, now)},
			{Key: "$lte", Value: now},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "hits", Value: bson.D{{Key: "$sum", Value: "$hits"}}},
			{Key: "misses", Value: bson.D{{Key: "$sum", Value: "$misses"}}},
			{Key: "store_errors", Value: bson.D{{Key: "$sum", Value: "$store_errors"}}},
		}}},
	})
	if err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}
	var totals []usageTotals
	if err := cursor.All(ctx, &totals); err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}
	if len(totals) > 0 {
		stats.WindowHits = totals[0].Hits
		stats.WindowMisses = totals[0].Misses
		stats.WindowStoreErrors = totals[0].StoreErrors
	}

	stats.HitRateOverWindow = model.HitRate(stats.WindowHits, stats.WindowMisses)
	return stats, nil
}

// storageSize reads the entries collection size via $collStats. It returns 0
// when the collection does not exist yet or the stage is unavailable.
func (s *MongoCacheStore) storageSize(ctx context.Context) int64 {
	cursor, err := s.entries.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$collStats", Value: bson.D{{Key: "storageStats", Value: bson.D{}}}}},
	})
	if err != nil {
		log.Debug().Err(err).Msg("collStats unavailable, storage size reported as zero")
		return 0
	}
	var out []collStats
	if err := cursor.All(ctx, &out); err != nil || len(out) == 0 {
		return 0
	}
	return out[0].StorageStats.Size
}

// RecordUsage $inc's the hourly usage document, creating it when absent.
func (s *MongoCacheStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	if delta.Empty() {
		return nil
	}
	_, err := s.usage.UpdateOne(ctx,
		bson.D{{Key: "bucket", Value: model.UsageBucket(delta.Bucket)}},
		bson.D{{Key: "$inc", Value: bson.D{
			{Key: "hits", Value: delta.Hits},
			{Key: "misses", Value: delta.Misses},
			{Key: "store_errors", Value: delta.StoreErrors},
		}}},
		options.Update().SetUpsert(true),
	)
	return model.NewStoreError(OpRecordUsage, err)
}

// TopEntries returns the most-hit documents.
func (s *MongoCacheStore) TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "hit_count", Value: -1}, {Key: "key", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.entries.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, model.NewStoreError(OpTopEntries, err)
	}
	var out []*model.CacheEntry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, model.NewStoreError(OpTopEntries, err)
	}
	for _, e := range out {
		normalizeEntryTimes(e)
	}
	return out, nil
}

// Ping checks the connection.
func (s *MongoCacheStore) Ping(ctx context.Context) error {
	return model.NewStoreError(OpPing, s.db.HealthCheck(ctx))
}

// Close disconnects the client.
func (s *MongoCacheStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

func normalizeEntryTimes(e *model.CacheEntry) {
	e.CreatedAt = e.CreatedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	if e.LastHitAt != nil {
		t := e.LastHitAt.UTC()
		e.LastHitAt = &t
	}
}

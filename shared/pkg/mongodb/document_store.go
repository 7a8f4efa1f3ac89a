package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is a plain field-name/value document
type Record = map[string]any

// RecordIDField is the key generated ids are stored under
const RecordIDField = "id"

// ErrInvalidIdentifier is returned for collection or column names outside [A-Za-z][A-Za-z0-9_]*
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// DocumentStore is the generic table contract over MongoDB collections.
// Collections and columns are addressed by name; records travel as maps.
type DocumentStore struct {
	store Store
}

// NewDocumentStore creates a document store over store
func NewDocumentStore(store Store) *DocumentStore {
	return &DocumentStore{store: store}
}

func (s *DocumentStore) collection(name string) (Collection, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidIdentifier, name)
	}
	return s.store.Collection(name), nil
}

func checkColumn(column string) error {
	if !identifierPattern.MatchString(column) {
		return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, column)
	}
	return nil
}

// Fetch returns every record in collection
func (s *DocumentStore) Fetch(ctx context.Context, collection string) ([]Record, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, coll, bson.M{})
}

// FetchBy returns the records whose column equals value
func (s *DocumentStore) FetchBy(ctx context.Context, collection, column string, value any) ([]Record, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	return s.find(ctx, coll, bson.M{column: value})
}

func (s *DocumentStore) find(ctx context.Context, coll Collection, filter bson.M) ([]Record, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]Record, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, Record(doc))
	}
	return records, cursor.Err()
}

// Insert stores record and returns it with a generated id when it had none
func (s *DocumentStore) Insert(ctx context.Context, collection string, record Record) (Record, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	doc := make(Record, len(record)+1)
	for k, v := range record {
		doc[k] = v
	}
	if id, ok := doc[RecordIDField]; !ok || id == "" || id == nil {
		doc[RecordIDField] = GenerateIDString()
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update applies partial to the record with id and returns the updated record
func (s *DocumentStore) Update(ctx context.Context, collection, id string, partial Record) (Record, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	set := withoutID(partial)
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_id": 0})

	var doc bson.M
	if err := coll.FindOneAndUpdate(ctx, bson.M{RecordIDField: id}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return Record(doc), nil
}

// UpdateBy applies partial to every record whose column equals value
func (s *DocumentStore) UpdateBy(ctx context.Context, collection, column string, value any, partial Record) (int64, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	if err := checkColumn(column); err != nil {
		return 0, err
	}

	result, err := coll.UpdateMany(ctx, bson.M{column: value}, bson.M{"$set": withoutID(partial)})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// Delete removes the record with id. A missing record yields mongo.ErrNoDocuments.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	coll, err := s.collection(collection)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{RecordIDField: id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteBy removes every record whose column equals value
func (s *DocumentStore) DeleteBy(ctx context.Context, collection, column string, value any) (int64, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	if err := checkColumn(column); err != nil {
		return 0, err
	}

	result, err := coll.DeleteMany(ctx, bson.M{column: value})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func withoutID(partial Record) bson.M {
	set := bson.M{}
	for k, v := range partial {
		if k == RecordIDField || k == "_id" {
			continue
		}
		set[k] = v
	}
	return set
}

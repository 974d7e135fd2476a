// Package mongostore implements store.Store on MongoDB. Standalone items live
// in the "items" collection; lists live in "lists" with their items embedded.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

const (
	itemsCollection = "items"
	listsCollection = "lists"
)

type itemDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type listDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Items []itemDoc          `bson:"items"`
}

func (d itemDoc) model() models.Item {
	return models.Item{ID: d.ID.Hex(), Name: d.Name}
}

func (d listDoc) model() *models.List {
	list := &models.List{Name: d.Name, Items: make([]models.Item, len(d.Items))}
	for i, it := range d.Items {
		list.Items[i] = it.model()
	}
	return list
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	items  *mongo.Collection
	lists  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and ensures the unique index on
// list names.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		db:     db,
		items:  db.Collection(itemsCollection),
		lists:  db.Collection(listsCollection),
	}

	_, err = s.lists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_unique"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create list name index: %w", err)
	}
	return s, nil
}

func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	cur, err := s.items.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]models.Item, len(docs))
	for i, d := range docs {
		items[i] = d.model()
	}
	return items, nil
}

func (s *Store) SeedItems(ctx context.Context, seed []models.Item) (bool, error) {
	n, err := s.items.CountDocuments(ctx, bson.D{}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if n > 0 || len(seed) == 0 {
		return false, nil
	}

	docs := make([]any, len(seed))
	for i, it := range seed {
		oid, err := primitive.ObjectIDFromHex(store.SeedID(i))
		if err != nil {
			return false, err
		}
		docs[i] = itemDoc{ID: oid, Name: it.Name}
	}

	// A concurrent seeder inserting the same IDs surfaces as duplicate keys.
	_, err = s.items.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("insert seed items: %w", err)
	}
	return true, nil
}

func (s *Store) AddItem(ctx context.Context, name string) (models.Item, error) {
	doc := itemDoc{ID: primitive.NewObjectID(), Name: name}
	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrItemNotFound
	}
	res, err := s.items.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, name string) (*models.List, error) {
	var doc listDoc
	err := s.lists.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find list: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) CreateList(ctx context.Context, name string, seed []models.Item) (*models.List, error) {
	items := make([]itemDoc, len(seed))
	for i, it := range seed {
		items[i] = itemDoc{ID: primitive.NewObjectID(), Name: it.Name}
	}

	_, err := s.lists.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name, "items": items}},
		options.Update().SetUpsert(true),
	)
	// Two concurrent upserts can race on the unique index; the loser's list
	// already exists, which is the outcome it wanted.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("upsert list: %w", err)
	}
	return s.GetList(ctx, name)
}

func (s *Store) AppendListItem(ctx context.Context, listName, itemName string) (models.Item, error) {
	doc := itemDoc{ID: primitive.NewObjectID(), Name: itemName}
	res, err := s.lists.UpdateOne(ctx,
		bson.M{"name": listName},
		bson.M{"$push": bson.M{"items": doc}},
	)
	if err != nil {
		return models.Item{}, fmt.Errorf("append list item: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Item{}, store.ErrListNotFound
	}
	return doc.model(), nil
}

func (s *Store) RemoveListItem(ctx context.Context, listName, itemID string) error {
	oid, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		if _, err := s.GetList(ctx, listName); err != nil {
			return err
		}
		return store.ErrItemNotFound
	}

	res, err := s.lists.UpdateOne(ctx,
		bson.M{"name": listName},
		bson.M{"$pull": bson.M{"items": bson.M{"_id": oid}}},
	)
	if err != nil {
		return fmt.Errorf("remove list item: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrListNotFound
	}
	if res.ModifiedCount == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// drop removes the database. Used by tests.
func (s *Store) drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

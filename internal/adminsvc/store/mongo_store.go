package store

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps the records in a collection, ids are uuid strings.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = "variables"
	}
	return &MongoStore{
		coll: db.Collection(collection),
		now:  time.Now,
	}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

func (s *MongoStore) FetchLatest(ctx context.Context) (*models.Variables, error) {
	v := &models.Variables{}
	err := s.coll.FindOne(ctx, bson.D{}, options.FindOne().SetSort(newestFirst)).Decode(v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		log.Errorf("error [FetchLatest] %v", err)
		return nil, backendErr("FetchLatest", err)
	}
	return v, nil
}

func (s *MongoStore) Insert(ctx context.Context, in models.VariablesInput) (*models.Variables, error) {
	// bson dates carry milliseconds only
	now := s.now().UTC().Truncate(time.Millisecond)
	v := &models.Variables{
		ID:          uuid.NewString(),
		VariableOne: in.VariableOne,
		VariableTwo: in.VariableTwo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.coll.InsertOne(ctx, v); err != nil {
		log.Errorf("error [Insert] %v", err)
		return nil, backendErr("Insert", err)
	}
	return v, nil
}

func (s *MongoStore) FetchAll(ctx context.Context) ([]models.Variables, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		log.Errorf("error [FetchAll] %v", err)
		return nil, backendErr("FetchAll", err)
	}

	list := []models.Variables{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, backendErr("FetchAll", err)
	}
	return list, nil
}

package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SrFlag/Melos-Company/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape. Prices are kept as decimal strings.
type cartDocument struct {
	Key       string         `bson:"key"`
	Items     []lineDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	ProductID int64  `bson:"product_id"`
	Name      string `bson:"name"`
	Price     string `bson:"price"`
	ImageURL  string `bson:"image"`
	Size      string `bson:"size"`
	Quantity  int    `bson:"quantity"`
}

type MongoStore struct {
	collection *mongo.Collection
	log        zerolog.Logger
}

func NewMongoStore(db *mongo.Database, log zerolog.Logger) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
		log:        log.With().Str("component", "cartstore.mongo").Logger(),
	}
}

// Get returns ErrCartNotFound for unknown sessions and ErrMalformed for
// documents that do not decode into a valid cart.
func (m *MongoStore) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	res := m.collection.FindOne(ctx, bson.M{"key": storageKey(sessionID)})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CartState{}, ErrCartNotFound
		}
		return domain.CartState{}, fmt.Errorf("failed to get cart: %w", err)
	}

	var doc cartDocument
	if err := res.Decode(&doc); err != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.toState()
}

func (m *MongoStore) Load(ctx context.Context, sessionID string) (domain.CartState, error) {
	state, err := m.Get(ctx, sessionID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, ErrCartNotFound):
		return domain.CartState{}, nil
	case errors.Is(err, ErrMalformed):
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("discarding unreadable cart")
		return domain.CartState{}, nil
	}
	return domain.CartState{}, err
}

func (m *MongoStore) Save(ctx context.Context, sessionID string, state domain.CartState) error {
	now := time.Now()
	items := make([]lineDocument, len(state.Lines))
	for i, l := range state.Lines {
		items[i] = lineDocument{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.UnitPrice.String(),
			ImageURL:  l.ImageURL,
			Size:      l.Size,
			Quantity:  l.Quantity,
		}
	}

	filter := bson.M{"key": storageKey(sessionID)}
	update := bson.M{
		"$set":         bson.M{"items": items, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"key": storageKey(sessionID)}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (d cartDocument) toState() (domain.CartState, error) {
	if len(d.Items) == 0 {
		return domain.CartState{}, nil
	}
	lines := make([]domain.CartLine, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return domain.CartState{}, fmt.Errorf("%w: price %q", ErrMalformed, it.Price)
		}
		lines = append(lines, domain.CartLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: price,
			ImageURL:  it.ImageURL,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}
	state := domain.CartState{Lines: lines}
	if err := state.Validate(); err != nil {
		return domain.CartState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return state, nil
}

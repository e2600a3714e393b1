package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultMongoDatabase = "healthmentor"
	usersCollection      = "users"
)

type mongoRecommendation struct {
	ID                string    `bson:"id"`
	Goal              string    `bson:"goal"`
	Weight            float64   `bson:"weight"`
	Height            float64   `bson:"height"`
	ExerciseFrequency float64   `bson:"exerciseFrequency"`
	Text              string    `bson:"text"`
	CreatedAt         time.Time `bson:"createdAt"`
}

type mongoUser struct {
	ChatID          string                `bson:"chatId"`
	IP              string                `bson:"ip"`
	Country         string                `bson:"country"`
	City            string                `bson:"city"`
	Lat             float64               `bson:"lat"`
	Lon             float64               `bson:"lon"`
	ISP             string                `bson:"isp"`
	Recommendations []mongoRecommendation `bson:"recommendations"`
	CreatedAt       time.Time             `bson:"createdAt"`
	UpdatedAt       time.Time             `bson:"updatedAt"`
}

// MongoStore keeps one document per user with the recommendations embedded.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	logger *zap.Logger
	now    func() time.Time
}

func NewMongoStore(ctx context.Context, opts ...Option) (*MongoStore, error) {
	cfg := applyOpts(opts)
	if cfg.DSN == "" {
		return nil, errors.New("database DSN not set")
	}
	dbName := cfg.MongoDatabase
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	users := client.Database(dbName).Collection(usersCollection)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chatId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create chatId index: %w", err)
	}
	cfg.Logger.Debug("mongo store ready", zap.String("database", dbName))
	return &MongoStore{client: client, users: users, logger: cfg.Logger, now: time.Now}, nil
}

func (s *MongoStore) Upsert(ctx context.Context, sessionID string, meta *Metadata, rec Recommendation) error {
	if err := checkUpsert(sessionID, rec); err != nil {
		return err
	}
	now := s.now().UTC()
	set := bson.D{{Key: "updatedAt", Value: now}}
	if meta != nil {
		set = append(set,
			bson.E{Key: "ip", Value: meta.IP},
			bson.E{Key: "country", Value: meta.Country},
			bson.E{Key: "city", Value: meta.City},
			bson.E{Key: "lat", Value: meta.Lat},
			bson.E{Key: "lon", Value: meta.Lon},
			bson.E{Key: "isp", Value: meta.ISP},
		)
	}
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
		{Key: "$set", Value: set},
		{Key: "$push", Value: bson.D{{Key: "recommendations", Value: mongoRecommendation{
			ID:                rec.ID,
			Goal:              rec.Goal,
			Weight:            rec.Weight,
			Height:            rec.Height,
			ExerciseFrequency: rec.ExerciseFrequency,
			Text:              rec.Text,
			CreatedAt:         rec.CreatedAt.UTC(),
		}}}},
	}
	_, err := s.users.UpdateOne(ctx, bson.D{{Key: "chatId", Value: sessionID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", sessionID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*UserProfile, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, bson.D{{Key: "chatId", Value: sessionID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", sessionID, err)
	}

	p := &UserProfile{
		SessionID: doc.ChatID,
		Metadata: Metadata{
			IP:      doc.IP,
			Country: doc.Country,
			City:    doc.City,
			Lat:     doc.Lat,
			Lon:     doc.Lon,
			ISP:     doc.ISP,
		},
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	for _, r := range doc.Recommendations {
		p.Recommendations = append(p.Recommendations, Recommendation{
			ID:                r.ID,
			Goal:              r.Goal,
			Weight:            r.Weight,
			Height:            r.Height,
			ExerciseFrequency: r.ExerciseFrequency,
			Text:              r.Text,
			CreatedAt:         r.CreatedAt.UTC(),
		})
	}
	return p, nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]ProfileSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "updatedAt", Value: -1}, {Key: "chatId", Value: 1}}}},
		{{Key: "$limit", Value: clampLimit(limit)}},
		{{Key: "$project", Value: bson.D{
			{Key: "chatId", Value: 1},
			{Key: "country", Value: 1},
			{Key: "city", Value: 1},
			{Key: "updatedAt", Value: 1},
			{Key: "count", Value: bson.D{{Key: "$size", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$recommendations", bson.A{}}},
			}}}},
		}}},
	}
	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ChatID    string    `bson:"chatId"`
		Country   string    `bson:"country"`
		City      string    `bson:"city"`
		UpdatedAt time.Time `bson:"updatedAt"`
		Count     int       `bson:"count"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	out := make([]ProfileSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, ProfileSummary{
			SessionID:       d.ChatID,
			Country:         d.Country,
			City:            d.City,
			Recommendations: d.Count,
			UpdatedAt:       d.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *MongoStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$recommendations"}},
		{{Key: "$match", Value: bson.D{{Key: "recommendations.createdAt", Value: bson.D{{Key: "$gte", Value: since.UTC()}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$recommendations.goal"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "users", Value: bson.D{{Key: "$addToSet", Value: "$chatId"}}},
		}}},
	}
	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer cur.Close(ctx)

	var groups []struct {
		Goal  string   `bson:"_id"`
		N     int      `bson:"n"`
		Users []string `bson:"users"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return Stats{}, fmt.Errorf("failed to decode stats: %w", err)
	}

	st := Stats{ByGoal: make(map[string]int)}
	seen := make(map[string]struct{})
	for _, g := range groups {
		st.ByGoal[g.Goal] = g.N
		st.Total += g.N
		for _, u := range g.Users {
			seen[u] = struct{}{}
		}
	}
	st.Profiles = len(seen)
	return st, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

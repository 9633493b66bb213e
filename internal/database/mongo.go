package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"codegate/entity"
	"codegate/impl/activation"
	"codegate/internal/config"
)

const (
	collectionCodes    = "activation_codes"
	collectionSessions = "device_sessions"
	collectionProfiles = "user_profiles"
	collectionUsage    = "daily_usage"
	collectionLinks    = "link_stats"
	collectionContacts = "subscribers"
	collectionCampaign = "campaign_logs"
)

// collections owned by a code; DeleteCode clears them before the code itself.
var codeOwned = []string{collectionSessions, collectionProfiles, collectionUsage, collectionLinks,
	collectionContacts, collectionCampaign}

type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	m := &MongoDB{
		client:   client,
		database: conf.Mongo.Database,
	}
	if err = m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}

func (m *MongoDB) codes() *mongo.Collection {
	return m.client.Database(m.database).Collection(collectionCodes)
}

func (m *MongoDB) sessions() *mongo.Collection {
	return m.collection(collectionSessions)
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := m.codes().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"code", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"created_at", -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb index %s: %w", collectionCodes, err)
	}
	_, err = m.sessions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"activation_code_id", 1}, {"device_id", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"device_id", 1}}},
		{Keys: bson.D{{"expires_at", 1}}},
		{Keys: bson.D{{"activated_at", -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb index %s: %w", collectionSessions, err)
	}
	indexes := map[string][]mongo.IndexModel{
		collectionProfiles: {{Keys: bson.D{{"activation_code_id", 1}, {"created_at", 1}}}},
		collectionUsage: {
			{Keys: bson.D{{"activation_code_id", 1}, {"date", -1}}},
			{Keys: bson.D{{"date", -1}}},
		},
		collectionLinks:    {{Keys: bson.D{{"activation_code_id", 1}}, Options: options.Index().SetUnique(true)}},
		collectionContacts: {{Keys: bson.D{{"activation_code_id", 1}, {"profile_name", 1}}}},
		collectionCampaign: {{Keys: bson.D{{"activation_code_id", 1}, {"profile_name", 1}, {"status", 1}}}},
	}
	for name, models := range indexes {
		if _, err = m.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb index %s: %w", name, err)
		}
	}
	return nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) findCode(ctx context.Context, filter bson.D) (*entity.ActivationCode, error) {
	var code entity.ActivationCode
	if err := m.codes().FindOne(ctx, filter).Decode(&code); err != nil {
		return nil, m.findError(err)
	}
	return &code, nil
}

func (m *MongoDB) FindCode(ctx context.Context, code string) (*entity.ActivationCode, error) {
	return m.findCode(ctx, bson.D{{"code", code}})
}

func (m *MongoDB) FindCodeById(ctx context.Context, id string) (*entity.ActivationCode, error) {
	return m.findCode(ctx, bson.D{{"_id", id}})
}

func (m *MongoDB) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := m.codes().CountDocuments(ctx, bson.D{{"code", code}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongodb count: %w", err)
	}
	return n > 0, nil
}

func (m *MongoDB) CreateCode(ctx context.Context, code *entity.ActivationCode) error {
	_, err := m.codes().InsertOne(ctx, code)
	return err
}

func (m *MongoDB) updateCode(ctx context.Context, id string, set bson.D) error {
	_, err := m.codes().UpdateOne(ctx, bson.D{{"_id", id}}, bson.D{{"$set", set}})
	return err
}

func (m *MongoDB) UpdateCodeDuration(ctx context.Context, id string, days int) error {
	return m.updateCode(ctx, id, bson.D{{"duration_days", days}})
}

func (m *MongoDB) SetCodeActive(ctx context.Context, id string, active bool) error {
	return m.updateCode(ctx, id, bson.D{{"is_active", active}})
}

func (m *MongoDB) SetFirstActivated(ctx context.Context, id string, at time.Time) error {
	filter := bson.D{{"_id", id}, {"first_activated_at", nil}}
	_, err := m.codes().UpdateOne(ctx, filter, bson.D{{"$set", bson.D{{"first_activated_at", at}}}})
	return err
}

// DeleteCode removes owned records first so a failure never leaves orphans behind a deleted code.
func (m *MongoDB) DeleteCode(ctx context.Context, id string) error {
	for _, name := range codeOwned {
		if _, err := m.collection(name).DeleteMany(ctx, bson.D{{"activation_code_id", id}}); err != nil {
			return fmt.Errorf("mongodb delete %s: %w", name, err)
		}
	}
	if _, err := m.codes().DeleteOne(ctx, bson.D{{"_id", id}}); err != nil {
		return fmt.Errorf("mongodb delete code: %w", err)
	}
	return nil
}

func (m *MongoDB) ListCodes(ctx context.Context, page entity.Page) ([]*entity.ActivationCode, int64, error) {
	total, err := m.codes().CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb count: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PerPage))
	cursor, err := m.codes().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var codes []*entity.ActivationCode
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

func (m *MongoDB) findSessions(ctx context.Context, filter bson.D, opts ...*options.FindOptions) ([]*entity.DeviceSession, error) {
	cursor, err := m.sessions().Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*entity.DeviceSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (m *MongoDB) SessionsByCode(ctx context.Context, codeId string) ([]*entity.DeviceSession, error) {
	return m.findSessions(ctx, bson.D{{"activation_code_id", codeId}},
		options.Find().SetSort(bson.D{{"activated_at", -1}}))
}

func (m *MongoDB) SessionsByDevice(ctx context.Context, deviceId string) ([]*entity.DeviceSession, error) {
	return m.findSessions(ctx, bson.D{{"device_id", deviceId}})
}

func (m *MongoDB) CreateSession(ctx context.Context, session *entity.DeviceSession) error {
	_, err := m.sessions().InsertOne(ctx, session)
	return err
}

func (m *MongoDB) updateSession(ctx context.Context, id string, set bson.D) error {
	_, err := m.sessions().UpdateOne(ctx, bson.D{{"_id", id}}, bson.D{{"$set", set}})
	return err
}

func (m *MongoDB) TouchSession(ctx context.Context, id string, at time.Time) error {
	return m.updateSession(ctx, id, bson.D{{"last_check", at}})
}

func (m *MongoDB) SetSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	return m.updateSession(ctx, id, bson.D{{"expires_at", expiresAt}})
}

func (m *MongoDB) DeleteSession(ctx context.Context, id string) error {
	_, err := m.sessions().DeleteOne(ctx, bson.D{{"_id", id}})
	return err
}

func (m *MongoDB) DeleteDeviceSessions(ctx context.Context, deviceId, codeId string) (int64, error) {
	filter := bson.D{{"device_id", deviceId}}
	if codeId != "" {
		filter = append(filter, bson.E{Key: "activation_code_id", Value: codeId})
	}
	res, err := m.sessions().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *MongoDB) CountLiveSessions(ctx context.Context, codeId string, now time.Time) (int64, error) {
	filter := bson.D{{"activation_code_id", codeId}, {"expires_at", bson.D{{"$gt", now}}}}
	return m.sessions().CountDocuments(ctx, filter)
}

func (m *MongoDB) ListSessions(ctx context.Context, page entity.Page) ([]*entity.DeviceSession, int64, error) {
	total, err := m.sessions().CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongodb count: %w", err)
	}
	sessions, err := m.findSessions(ctx, bson.D{}, options.Find().
		SetSort(bson.D{{"activated_at", -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PerPage)))
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (m *MongoDB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := m.sessions().DeleteMany(ctx, bson.D{{"expires_at", bson.D{{"$lt", before}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *MongoDB) Stats(ctx context.Context, now time.Time) (*entity.Stats, error) {
	var stats entity.Stats
	var err error
	if stats.TotalCodes, err = m.codes().CountDocuments(ctx, bson.D{}); err != nil {
		return nil, fmt.Errorf("mongodb count codes: %w", err)
	}
	if stats.ActiveCodes, err = m.codes().CountDocuments(ctx, bson.D{{"is_active", true}}); err != nil {
		return nil, fmt.Errorf("mongodb count active codes: %w", err)
	}
	if stats.LiveSessions, err = m.sessions().CountDocuments(ctx, bson.D{{"expires_at", bson.D{{"$gt", now}}}}); err != nil {
		return nil, fmt.Errorf("mongodb count live sessions: %w", err)
	}
	if stats.ExpiredSessions, err = m.sessions().CountDocuments(ctx, bson.D{{"expires_at", bson.D{{"$lte", now}}}}); err != nil {
		return nil, fmt.Errorf("mongodb count expired sessions: %w", err)
	}
	return &stats, nil
}

var _ activation.Store = (*MongoDB)(nil)

package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"codegate/entity"
)

func findAll[T any](ctx context.Context, m *MongoDB, name string, filter bson.D, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := m.collection(name).Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongodb find %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var items []*T
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongodb decode %s: %w", name, err)
	}
	return items, nil
}

func findOne[T any](ctx context.Context, m *MongoDB, name string, filter bson.D) (*T, error) {
	var item T
	if err := m.collection(name).FindOne(ctx, filter).Decode(&item); err != nil {
		return nil, m.findError(err)
	}
	return &item, nil
}

func (m *MongoDB) ProfilesByCode(ctx context.Context, codeId string) ([]*entity.UserProfile, error) {
	return findAll[entity.UserProfile](ctx, m, collectionProfiles, bson.D{{"activation_code_id", codeId}},
		options.Find().SetSort(bson.D{{"created_at", 1}, {"_id", 1}}))
}

func (m *MongoDB) FindProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	return findOne[entity.UserProfile](ctx, m, collectionProfiles, bson.D{{"_id", id}})
}

func (m *MongoDB) CountContacts(ctx context.Context, codeId, profileName string) (int64, error) {
	return m.collection(collectionContacts).CountDocuments(ctx,
		bson.D{{"activation_code_id", codeId}, {"profile_name", profileName}})
}

func (m *MongoDB) CountSentBroadcasts(ctx context.Context, codeId, profileName string) (int64, error) {
	return m.collection(collectionCampaign).CountDocuments(ctx,
		bson.D{{"activation_code_id", codeId}, {"profile_name", profileName}, {"status", "sent"}})
}

func (m *MongoDB) UsageByCode(ctx context.Context, codeId string) ([]*entity.DailyUsage, error) {
	return findAll[entity.DailyUsage](ctx, m, collectionUsage, bson.D{{"activation_code_id", codeId}},
		options.Find().SetSort(bson.D{{"date", -1}, {"_id", 1}}))
}

// UsageSince compares date keys as strings; the fixed YYYY-MM-DD layout keeps that in calendar order.
func (m *MongoDB) UsageSince(ctx context.Context, since string) ([]*entity.DailyUsage, error) {
	return findAll[entity.DailyUsage](ctx, m, collectionUsage, bson.D{{"date", bson.D{{"$gte", since}}}},
		options.Find().SetSort(bson.D{{"date", -1}, {"_id", 1}}))
}

func (m *MongoDB) FindLinkStats(ctx context.Context, codeId string) (*entity.LinkStats, error) {
	return findOne[entity.LinkStats](ctx, m, collectionLinks, bson.D{{"activation_code_id", codeId}})
}

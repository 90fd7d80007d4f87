package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coupondrop/entity"
	"coupondrop/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	collectionCoupons = "coupons"
	collectionAdmins  = "admins"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the unique index on coupon codes and the username
// index on admins. Called once at startup.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	coupons := connection.Database(m.database).Collection(collectionCoupons)
	_, err = coupons.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb index coupons: %w", err)
	}

	admins := connection.Database(m.database).Collection(collectionAdmins)
	_, err = admins.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb index admins: %w", err)
	}
	return nil
}

// GetAdmin returns nil without error when the username is unknown, so the
// caller can collapse unknown-user and bad-password into one outcome.
func (m *MongoDB) GetAdmin(username string) (*entity.Admin, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAdmins)
	filter := bson.D{{Key: "username", Value: username}}
	var admin entity.Admin
	err = collection.FindOne(m.ctx, filter).Decode(&admin)
	if err != nil {
		return nil, m.findError(err)
	}
	return &admin, nil
}

// UpsertAdmin seeds or rotates an administrator account. The password is
// hashed at write time unless it is already a bcrypt hash.
func (m *MongoDB) UpsertAdmin(username, password string) error {
	if !isBcryptHash(password) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		password = string(hash)
	}

	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAdmins)
	filter := bson.D{{Key: "username", Value: username}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: username},
		{Key: "password", Value: password},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2") && len(s) == 60
}

func (m *MongoDB) AddCoupon(code string, now time.Time) (*entity.Coupon, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	coupon := &entity.Coupon{
		Code:      code,
		Status:    entity.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	collection := connection.Database(m.database).Collection(collectionCoupons)
	result, err := collection.InsertOne(m.ctx, coupon)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, entity.ErrDuplicateCode
		}
		return nil, fmt.Errorf("mongodb insert: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		coupon.Id = id
	}
	return coupon, nil
}

func (m *MongoDB) Coupons() ([]*entity.Coupon, error) {
	return m.findCoupons(bson.D{}, nil)
}

func (m *MongoDB) AvailableCoupons() ([]*entity.Coupon, error) {
	filter := bson.D{{Key: "status", Value: entity.StatusAvailable}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return m.findCoupons(filter, opts)
}

// ClaimedCoupons returns the claim history, most recently updated first.
func (m *MongoDB) ClaimedCoupons() ([]*entity.Coupon, error) {
	filter := bson.D{{Key: "status", Value: entity.StatusClaimed}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return m.findCoupons(filter, opts)
}

func (m *MongoDB) findCoupons(filter bson.D, opts *options.FindOptions) ([]*entity.Coupon, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCoupons)
	var cursor *mongo.Cursor
	if opts != nil {
		cursor, err = collection.Find(m.ctx, filter, opts)
	} else {
		cursor, err = collection.Find(m.ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(m.ctx)

	coupons := make([]*entity.Coupon, 0)
	err = cursor.All(m.ctx, &coupons)
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// ClaimOldest atomically assigns the oldest available coupon to identity.
// The availability predicate travels inside the update filter, so two
// concurrent claims can never select the same document. Returns nil when
// the pool is exhausted.
func (m *MongoDB) ClaimOldest(identity string, now time.Time) (*entity.Coupon, error) {
	filter := bson.D{{Key: "status", Value: entity.StatusAvailable}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)
	return m.claim(filter, identity, now, opts)
}

// ClaimById is the explicit-id claim variant. A malformed id, an unknown id
// and an already-claimed coupon all land in the same nil result.
func (m *MongoDB) ClaimById(id, identity string, now time.Time) (*entity.Coupon, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	filter := bson.D{
		{Key: "_id", Value: objectId},
		{Key: "status", Value: entity.StatusAvailable},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return m.claim(filter, identity, now, opts)
}

func (m *MongoDB) claim(filter bson.D, identity string, now time.Time, opts *options.FindOneAndUpdateOptions) (*entity.Coupon, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.StatusClaimed},
		{Key: "assigned_to", Value: identity},
		{Key: "updated_at", Value: now},
	}}}
	collection := connection.Database(m.database).Collection(collectionCoupons)
	var coupon entity.Coupon
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&coupon)
	if err != nil {
		return nil, m.findError(err)
	}
	return &coupon, nil
}

// RecentClaim returns a coupon claimed by identity no earlier than since,
// or nil when the identity is clean. Feeds the abuse guard.
func (m *MongoDB) RecentClaim(identity string, since time.Time) (*entity.Coupon, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{
		{Key: "assigned_to", Value: identity},
		{Key: "status", Value: entity.StatusClaimed},
		{Key: "updated_at", Value: bson.D{{Key: "$gte", Value: since}}},
	}
	collection := connection.Database(m.database).Collection(collectionCoupons)
	var coupon entity.Coupon
	err = collection.FindOne(m.ctx, filter).Decode(&coupon)
	if err != nil {
		return nil, m.findError(err)
	}
	return &coupon, nil
}

// UpdateCoupon applies a partial admin edit. An empty update is a plain
// read. Returns nil when the id matches nothing.
func (m *MongoDB) UpdateCoupon(id string, upd *entity.CouponUpdate, now time.Time) (*entity.Coupon, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCoupons)
	filter := bson.D{{Key: "_id", Value: objectId}}
	var coupon entity.Coupon

	if upd.IsEmpty() {
		err = collection.FindOne(m.ctx, filter).Decode(&coupon)
		if err != nil {
			return nil, m.findError(err)
		}
		return &coupon, nil
	}

	fields := bson.D{{Key: "updated_at", Value: now}}
	if upd.Status != nil {
		fields = append(fields, bson.E{Key: "status", Value: *upd.Status})
	}
	if upd.Code != nil {
		fields = append(fields, bson.E{Key: "code", Value: *upd.Code})
	}
	update := bson.D{{Key: "$set", Value: fields}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&coupon)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, entity.ErrDuplicateCode
		}
		return nil, m.findError(err)
	}
	return &coupon, nil
}

// DeleteCoupon removes a coupon unconditionally. Reports whether a
// document was actually deleted.
func (m *MongoDB) DeleteCoupon(id string) (bool, error) {
	objectId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCoupons)
	filter := bson.D{{Key: "_id", Value: objectId}}
	result, err := collection.DeleteOne(m.ctx, filter)
	if err != nil {
		return false, fmt.Errorf("mongodb delete: %w", err)
	}
	return result.DeletedCount > 0, nil
}

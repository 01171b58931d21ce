package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/storefront/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	ProductsCollection = "products"
	CartsCollection    = "carts"
	OrdersCollection   = "orders"
)

// MongoStore persists documents in MongoDB. Transactions require a replica set.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	carts    *mongo.Collection
	orders   *mongo.Collection
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// NewMongoStore connects, pings and ensures indexes
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		products: db.Collection(ProductsCollection),
		carts:    db.Collection(CartsCollection),
		orders:   db.Collection(OrdersCollection),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{
		"database": database,
	}).Info("Connected to MongoDB")

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.products: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.carts: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.orders: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "orderStatus", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) Products() ProductRepository { return mongoProducts{s.products} }
func (s *MongoStore) Carts() CartRepository       { return mongoCarts{s.carts} }
func (s *MongoStore) Orders() OrderRepository     { return mongoOrders{s.orders} }

// RunInTx runs fn inside a MongoDB multi-document transaction
func (s *MongoStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

type mongoProducts struct{ coll *mongo.Collection }

func (r mongoProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err, "product "+id)
	}
	return &p, nil
}

func (r mongoProducts) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * filter.Limit)).SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products := []*models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}

func (r mongoProducts) Insert(ctx context.Context, product *models.Product) error {
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product %s: %w", product.ID, err)
	}
	return nil
}

func (r mongoProducts) SetStock(ctx context.Context, id string, stock int) (int, error) {
	var before models.Product
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"countInStock": stock, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return 0, notFound(err, "product "+id)
	}
	return before.CountInStock, nil
}

func (r mongoProducts) AdjustStock(ctx context.Context, adj models.StockAdjustment) (*models.Product, error) {
	filter := bson.M{"_id": adj.ProductID}
	if adj.Delta < 0 {
		filter["countInStock"] = bson.M{"$gte": -adj.Delta}
	}

	var after models.Product
	err := r.coll.FindOneAndUpdate(ctx,
		filter,
		bson.M{
			"$inc": bson.M{"countInStock": adj.Delta, "soldCount": -adj.Delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if err == nil {
		return &after, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to adjust stock of %s: %w", adj.ProductID, err)
	}

	// the guard did not match: tell a missing product from a short one
	if _, getErr := r.Get(ctx, adj.ProductID); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("product %s needs %d: %w", adj.ProductID, -adj.Delta, models.ErrInsufficientStock)
}

func (r mongoProducts) LowStock(ctx context.Context) ([]*models.Product, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{
			"isActive": true,
			"$expr":    bson.M{"$lte": bson.A{"$countInStock", "$lowStockThreshold"}},
		},
		options.Find().SetSort(bson.D{{Key: "countInStock", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock: %w", err)
	}

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode low stock: %w", err)
	}
	return products, nil
}

type mongoCarts struct{ coll *mongo.Collection }

func (r mongoCarts) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&c); err != nil {
		return nil, notFound(err, "cart for user "+userID)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return &c, nil
}

func (r mongoCarts) Save(ctx context.Context, cart *models.Cart) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save cart %s: %w", cart.ID, err)
	}
	return nil
}

type mongoOrders struct{ coll *mongo.Collection }

func (r mongoOrders) Insert(ctx context.Context, order *models.Order) error {
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
	}
	return nil
}

func (r mongoOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, notFound(err, "order "+id)
	}
	return &o, nil
}

func (r mongoOrders) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r mongoOrders) List(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	query := bson.M{}
	if status != "" {
		query["orderStatus"] = status
	}
	return r.find(ctx, query)
}

func (r mongoOrders) find(ctx context.Context, query bson.M) ([]*models.Order, error) {
	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []*models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (r mongoOrders) Update(ctx context.Context, order *models.Order) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", order.ID, models.ErrNotFound)
	}
	return nil
}

type statusBucket struct {
	Status  models.OrderStatus `bson:"_id"`
	Count   int64              `bson:"count"`
	Paid    int64              `bson:"paid"`
	Revenue float64            `bson:"revenue"`
}

func (r mongoOrders) Stats(ctx context.Context) (models.OrderStats, error) {
	paid := bson.M{"$eq": bson.A{"$paymentInfo.status", models.PaymentStatusCompleted}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":     "$orderStatus",
			"count":   bson.M{"$sum": 1},
			"paid":    bson.M{"$sum": bson.M{"$cond": bson.A{paid, 1, 0}}},
			"revenue": bson.M{"$sum": bson.M{"$cond": bson.A{paid, "$totalPrice", 0}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	var buckets []statusBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return models.OrderStats{}, fmt.Errorf("failed to decode order stats: %w", err)
	}

	stats := models.OrderStats{OrdersByStatus: make(map[models.OrderStatus]int64)}
	revenue := decimal.Zero
	for _, b := range buckets {
		stats.TotalOrders += b.Count
		stats.PaidOrders += b.Paid
		revenue = revenue.Add(decimal.NewFromFloat(b.Revenue))
		stats.OrdersByStatus[b.Status] = b.Count
	}
	stats.Revenue = revenue.Round(2).InexactFloat64()
	return stats, nil
}

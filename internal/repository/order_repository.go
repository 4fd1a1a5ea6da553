package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/models"
)

// OrderFilter scopes an order listing. An empty UserID means all users
// (admin listing).
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
	Page   int
	Limit  int
}

// OrderRepository persists orders. Orders are never deleted, only
// status-advanced.
type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection("orders")}
}

// Insert stores a freshly created order.
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order.ID = primitive.NewObjectID()
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, order)
	return err
}

// FindByID fetches one order by hex id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid order id", map[string]string{"order": id})
	}

	var order models.Order
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("order not found")
		}
		return nil, err
	}
	return &order, nil
}

// FindAll lists orders matching the filter, newest first.
func (r *OrderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.UserID != "" {
		objID, err := primitive.ObjectIDFromHex(filter.UserID)
		if err != nil {
			return nil, 0, apperr.Validation("invalid user id", map[string]string{"user": filter.UserID})
		}
		query["user"] = objID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	totalCh := make(chan int64, 1)
	errCh := make(chan error, 1)
	go func() {
		total, err := r.collection.CountDocuments(ctx, query)
		if err != nil {
			errCh <- err
			return
		}
		totalCh <- total
	}()

	opts := options.Find().
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}

	select {
	case total := <-totalCh:
		return orders, total, nil
	case err := <-errCh:
		return nil, 0, err
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Update persists the mutable lifecycle fields of an order.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order.UpdatedAt = time.Now()
	update := bson.M{
		"status":          order.Status,
		"payment_status":  order.PaymentStatus,
		"tracking_number": order.TrackingNumber,
		"notes":           order.Notes,
		"paid_at":         order.PaidAt,
		"delivered_at":    order.DeliveredAt,
		"updated_at":      order.UpdatedAt,
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

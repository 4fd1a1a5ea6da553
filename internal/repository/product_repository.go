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

// ProductRepository persists catalog products.
type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection("products")}
}

// Create inserts a new product. Duplicate SKUs are rejected.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	product.ID = primitive.NewObjectID()
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, product)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("a product with this SKU already exists")
	}
	return err
}

// FindByID fetches one product by hex id.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid product id", map[string]string{"product": id})
	}

	var product models.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU fetches one product by SKU.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var product models.Product
	err := r.collection.FindOne(ctx, bson.M{"sku": sku}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindAll lists products matching the filter with pagination metadata.
func (r *ProductRepository) FindAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := buildProductQuery(filter)

	// Count runs in parallel with the page fetch.
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
		SetSort(buildProductSort(filter))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}

	select {
	case total := <-totalCh:
		return products, total, nil
	case err := <-errCh:
		return nil, 0, err
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Update applies a field patch to one product.
func (r *ProductRepository) Update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid product id", map[string]string{"product": id})
	}

	update["updated_at"] = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

// SoftDelete deactivates a product; it stays readable by admin queries.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	return r.Update(ctx, id, bson.M{"is_active": false})
}

// UpdatePriceTiers replaces a product's tier table.
func (r *ProductRepository) UpdatePriceTiers(ctx context.Context, id string, tiers []models.PriceTier) error {
	return r.Update(ctx, id, bson.M{"price_tiers": tiers})
}

// SetSizeInventory overwrites inventory counters for the given sizes.
// Unknown size labels are ignored, matching the admin contract.
func (r *ProductRepository) SetSizeInventory(ctx context.Context, id string, updates []models.SizeStock) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid product id", map[string]string{"product": id})
	}

	matchedProduct := false
	for _, u := range updates {
		result, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": objID, "sizes.size": u.Size},
			bson.M{"$set": bson.M{"sizes.$.inventory": u.Inventory, "updated_at": time.Now()}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount > 0 {
			matchedProduct = true
		}
	}
	if !matchedProduct {
		// Distinguish a missing product from all-unknown sizes.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID})
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("product not found")
		}
	}
	return nil
}

// DecrementSizeInventory conditionally reserves stock: the update only
// matches while the size still holds at least quantity units, so a
// stale read can never oversell. Returns false when the guard fails.
func (r *ProductRepository) DecrementSizeInventory(ctx context.Context, id, size string, quantity int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, apperr.Validation("invalid product id", map[string]string{"product": id})
	}

	filter := bson.M{
		"_id": objID,
		"sizes": bson.M{"$elemMatch": bson.M{
			"size":      size,
			"inventory": bson.M{"$gte": quantity},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"sizes.$.inventory": -quantity},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// IncrementSizeInventory returns previously reserved stock. Used to
// release reservations when a later line or the order insert fails,
// and to restock cancelled unpaid orders.
func (r *ProductRepository) IncrementSizeInventory(ctx context.Context, id, size string, quantity int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid product id", map[string]string{"product": id})
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "sizes.size": size},
		bson.M{
			"$inc": bson.M{"sizes.$.inventory": quantity},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("product or size not found")
	}
	return nil
}

// buildProductQuery translates the parsed filter into a mongo query.
func buildProductQuery(filter models.ProductFilter) bson.M {
	query := bson.M{}

	// Only active products unless the caller asked otherwise.
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	} else {
		query["is_active"] = true
	}

	if filter.Search != "" {
		regex := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = []bson.M{
			{"name": regex},
			{"description": regex},
			{"brand": regex},
		}
	}
	if filter.Category != "" {
		if objID, err := primitive.ObjectIDFromHex(filter.Category); err == nil {
			query["category"] = objID
		} else {
			query["category"] = filter.Category
		}
	}
	if filter.Brand != "" {
		query["brand"] = filter.Brand
	}
	if filter.Color != "" {
		query["specifications.color"] = filter.Color
	}
	if filter.Material != "" {
		query["specifications.material"] = filter.Material
	}
	if filter.Style != "" {
		query["specifications.style"] = filter.Style
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query["sizes"] = bson.M{"$elemMatch": bson.M{"inventory": bson.M{"$gt": 0}}}
		} else {
			query["sizes"] = bson.M{"$not": bson.M{"$elemMatch": bson.M{"inventory": bson.M{"$gt": 0}}}}
		}
	}

	price := bson.M{}
	if filter.MinPriceCents > 0 {
		price["$gte"] = filter.MinPriceCents
	}
	if filter.MaxPriceCents > 0 {
		price["$lte"] = filter.MaxPriceCents
	}
	if len(price) > 0 {
		query["base_price_cents"] = price
	}

	return query
}

// buildProductSort maps the sort parameters to a mongo sort document.
// Defaults to newest first.
func buildProductSort(filter models.ProductFilter) bson.D {
	field := "created_at"
	switch filter.SortBy {
	case "name":
		field = "name"
	case "price":
		field = "base_price_cents"
	case "created_at", "":
	}

	order := -1
	if filter.SortOrder == "asc" {
		order = 1
	}
	if filter.SortBy == "" && filter.SortOrder == "" {
		order = -1
	}
	return bson.D{{Key: field, Value: order}}
}

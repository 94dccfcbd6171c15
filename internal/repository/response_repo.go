package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"discovery/internal/model"
)

// ResponseCollection holds one flat document per user
const ResponseCollection = "questionnaireresponses"

// ResponseRepo persists questionnaire responses as flat entities.
// Get returns (nil, nil) when the user has no record.
type ResponseRepo interface {
	Get(ctx context.Context, userID string) (*model.QuestionnaireResponse, error)
	Save(ctx context.Context, response *model.QuestionnaireResponse) error
	List(ctx context.Context) ([]*model.QuestionnaireResponse, error)
}

type mongoResponseRepo struct {
	collection    *mongo.Collection
	totalSections int
	logger        *zap.Logger
}

// NewResponseRepo creates a MongoDB-backed response repository
func NewResponseRepo(db *mongo.Database, totalSections int, logger *zap.Logger) ResponseRepo {
	return &mongoResponseRepo{
		collection:    db.Collection(ResponseCollection),
		totalSections: totalSections,
		logger:        logger,
	}
}

func (r *mongoResponseRepo) filter(userID string) bson.M {
	return bson.M{FieldPartitionKey: model.ResponsePartition, FieldRowKey: userID}
}

func (r *mongoResponseRepo) Get(ctx context.Context, userID string) (*model.QuestionnaireResponse, error) {
	var doc bson.M
	err := r.collection.FindOne(ctx, r.filter(userID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response %s: %w", userID, err)
	}
	return r.decode(doc), nil
}

func (r *mongoResponseRepo) Save(ctx context.Context, response *model.QuestionnaireResponse) error {
	fields, err := EncodeEntity(response)
	if err != nil {
		return fmt.Errorf("failed to encode response %s: %w", response.RowKey, err)
	}
	doc := make(bson.M, len(fields))
	for k, v := range fields {
		doc[k] = v
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, r.filter(response.RowKey), doc, opts); err != nil {
		return fmt.Errorf("failed to save response %s: %w", response.RowKey, err)
	}
	return nil
}

func (r *mongoResponseRepo) List(ctx context.Context) ([]*model.QuestionnaireResponse, error) {
	cursor, err := r.collection.Find(ctx, bson.M{FieldPartitionKey: model.ResponsePartition},
		options.Find().SetSort(bson.D{{Key: FieldRowKey, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	responses := make([]*model.QuestionnaireResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, r.decode(doc))
	}
	return responses, nil
}

func (r *mongoResponseRepo) decode(doc bson.M) *model.QuestionnaireResponse {
	fields := make(map[string]string, len(doc))
	for k, v := range doc {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return decodeEntity(fields, r.totalSections, CorruptLogger(r.logger, fields[FieldRowKey]))
}

// CorruptLogger returns a CorruptFunc that logs the defaulted field
func CorruptLogger(logger *zap.Logger, userID string) CorruptFunc {
	if logger == nil {
		return nil
	}
	return func(field string, err error) {
		logger.Warn("corrupt response field, using default",
			zap.String("userId", userID),
			zap.String("field", field),
			zap.Error(err))
	}
}

// DecodeEntityLogged is DecodeEntity with corrupt blobs reported to logger
func DecodeEntityLogged(fields map[string]string, totalSections int, logger *zap.Logger) *model.QuestionnaireResponse {
	return decodeEntity(fields, totalSections, CorruptLogger(logger, fields[FieldRowKey]))
}

package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/instrumentation"
)

const todosCollection = "todos"

// ErrNotFound is returned when a todo does not exist for the user.
var ErrNotFound = errors.New("todo not found")

// Todo is a locally stored task, independent of the user's Google Tasks.
type Todo struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"-"`
	Title     string    `bson:"title" json:"title"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Due       time.Time `bson:"due,omitempty" json:"due,omitempty"`
	Done      bool      `bson:"done" json:"done"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Input carries the caller-editable todo fields.
type Input struct {
	Title string     `json:"title"`
	Notes string     `json:"notes"`
	Due   *time.Time `json:"due"`
	Done  *bool      `json:"done"`
}

// Store persists todos. Every operation is scoped to one user; a todo is
// only ever visible to the user who created it.
type Store struct {
	todos   *mongo.Collection
	metrics *instrumentation.Metrics
}

// NewStore creates a todo store on the given database.
func NewStore(db *mongo.Database, metrics *instrumentation.Metrics) *Store {
	return &Store{
		todos:   db.Collection(todosCollection),
		metrics: metrics,
	}
}

// EnsureIndexes creates the per-user listing index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.todos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create todo indexes: %w", err)
	}
	return nil
}

func (s *Store) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	s.metrics.RecordStoreOperation(ctx, todosCollection, operation, status, time.Since(start))
}

// List returns the user's todos, newest first.
func (s *Store) List(ctx context.Context, userID string) (todos []Todo, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "list", start, err) }()

	cursor, err := s.todos.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer cursor.Close(ctx)

	todos = []Todo{}
	if err := cursor.All(ctx, &todos); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}
	return todos, nil
}

// Create stores a new todo for the user.
func (s *Store) Create(ctx context.Context, userID string, input Input) (todo *Todo, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "create", start, err) }()

	if input.Title == "" {
		return nil, apperrors.Validation("todo title is required")
	}

	now := time.Now().UTC()
	created := Todo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     input.Title,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Due != nil {
		created.Due = input.Due.UTC()
	}
	if input.Done != nil {
		created.Done = *input.Done
	}

	if _, err := s.todos.InsertOne(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return &created, nil
}

// Get returns one todo by id, scoped to the user.
func (s *Store) Get(ctx context.Context, userID, todoID string) (todo *Todo, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "get", start, err) }()

	var t Todo
	err = s.todos.FindOne(ctx, bson.M{"_id": todoID, "user_id": userID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return &t, nil
}

// Update applies the non-zero input fields to the todo and returns the
// updated document.
func (s *Store) Update(ctx context.Context, userID, todoID string, input Input) (todo *Todo, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "update", start, err) }()

	set := bson.M{"updated_at": time.Now().UTC()}
	if input.Title != "" {
		set["title"] = input.Title
	}
	if input.Notes != "" {
		set["notes"] = input.Notes
	}
	if input.Due != nil {
		set["due"] = input.Due.UTC()
	}
	if input.Done != nil {
		set["done"] = *input.Done
	}

	var t Todo
	err = s.todos.FindOneAndUpdate(ctx,
		bson.M{"_id": todoID, "user_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return &t, nil
}

// Toggle flips the done flag and returns the updated todo.
func (s *Store) Toggle(ctx context.Context, userID, todoID string) (todo *Todo, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "toggle", start, err) }()

	// Mongo can flip a boolean atomically; no read-then-write window here.
	var t Todo
	err = s.todos.FindOneAndUpdate(ctx,
		bson.M{"_id": todoID, "user_id": userID},
		bson.A{bson.M{"$set": bson.M{
			"done":       bson.M{"$not": bson.A{"$done"}},
			"updated_at": "$$NOW",
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle todo: %w", err)
	}
	return &t, nil
}

// Delete removes the todo.
func (s *Store) Delete(ctx context.Context, userID, todoID string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "delete", start, err) }()

	res, deleteErr := s.todos.DeleteOne(ctx, bson.M{"_id": todoID, "user_id": userID})
	if deleteErr != nil {
		return fmt.Errorf("failed to delete todo: %w", deleteErr)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

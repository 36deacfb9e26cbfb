package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Document pairs a decoded Firestore document with its identifier and timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// QueryBuilder customises Firestore queries before execution.
type QueryBuilder func(query firestore.Query) firestore.Query

// BaseRepository provides typed access to one collection. T is a struct carrying firestore tags.
type BaseRepository[T any] struct {
	provider *Provider
	path     string
}

// NewBaseRepository constructs a BaseRepository bound to a top level collection.
func NewBaseRepository[T any](provider *Provider, collection string) *BaseRepository[T] {
	return &BaseRepository[T]{provider: provider, path: strings.Trim(strings.TrimSpace(collection), "/")}
}

// Sub returns a repository for the subcollection of document parentID, e.g. accounts/{id}/wishlist.
func Sub[T any, P any](parent *BaseRepository[P], parentID, collection string) *BaseRepository[T] {
	return &BaseRepository[T]{
		provider: parent.provider,
		path:     parent.path + "/" + strings.TrimSpace(parentID) + "/" + strings.TrimSpace(collection),
	}
}

// Create writes a new document and reports a conflict when the ID already exists.
func (r *BaseRepository[T]) Create(ctx context.Context, id string, value T) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Create(ctx, value); err != nil {
		return WrapError(r.op("create"), err)
	}
	return nil
}

// Set upserts the value under the provided document ID.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T) (time.Time, error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	result, err := doc.Set(ctx, value)
	if err != nil {
		return time.Time{}, WrapError(r.op("set"), err)
	}
	return result.UpdateTime, nil
}

// Update applies field updates to an existing document.
func (r *BaseRepository[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Update(ctx, updates); err != nil {
		return WrapError(r.op("update"), err)
	}
	return nil
}

// Delete removes the document. Deleting a missing document succeeds.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Delete(ctx); err != nil {
		return WrapError(r.op("delete"), err)
	}
	return nil
}

// Get fetches and decodes the document by ID.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	return r.Decode(snap)
}

// GetTx reads the document inside a transaction. found is false when the document does not exist.
func (r *BaseRepository[T]) GetTx(ctx context.Context, tx *firestore.Transaction, id string) (doc Document[T], found bool, err error) {
	ref, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, false, err
	}
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return Document[T]{}, false, nil
	}
	if err != nil {
		return Document[T]{}, false, WrapError(r.op("tx.get"), err)
	}
	doc, err = r.Decode(snap)
	return doc, err == nil, err
}

// GetMany fetches several documents in one round trip. Missing IDs are omitted from the result.
func (r *BaseRepository[T]) GetMany(ctx context.Context, ids []string) (map[string]Document[T], error) {
	out := make(map[string]Document[T], len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			refs = append(refs, client.Collection(r.path).Doc(id))
		}
	}
	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, WrapError(r.op("get_all"), err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		doc, err := r.Decode(snap)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = doc
	}
	return out, nil
}

// Query executes a collection query and returns the decoded documents.
func (r *BaseRepository[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	query := client.Collection(r.path).Query
	if build != nil {
		query = build(query)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(r.op("query"), err)
		}
		doc, err := r.Decode(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

// DocumentRef exposes the underlying document reference for transactions and batched writes.
func (r *BaseRepository[T]) DocumentRef(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(r.op("document"), errors.New("document id is required"))
	}
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.path).Doc(id), nil
}

// Decode turns a snapshot into a typed Document.
func (r *BaseRepository[T]) Decode(snap *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("%s: decode %s: %w", r.op("decode"), snap.Ref.ID, err)
	}
	return Document[T]{
		ID:         snap.Ref.ID,
		Data:       data,
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}, nil
}

func (r *BaseRepository[T]) client(ctx context.Context) (*firestore.Client, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("firestore: repository not initialised")
	}
	if r.path == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	return r.provider.Client(ctx)
}

func (r *BaseRepository[T]) op(action string) string {
	return r.path + "." + action
}

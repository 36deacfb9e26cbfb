//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/platform/firestore/firestoretest"
)

type sampleEntity struct {
	Name  string `firestore:"name"`
	Count int    `firestore:"count"`
}

type sampleChild struct {
	Label string `firestore:"label"`
}

func TestBaseRepositoryAgainstEmulator(t *testing.T) {
	provider := firestoretest.NewProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	repo := pfirestore.NewBaseRepository[sampleEntity](provider, "samples")
	if err := repo.Create(ctx, "sample-1", sampleEntity{Name: "alpha", Count: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	type classifier interface {
		IsNotFound() bool
		IsConflict() bool
	}
	var cls classifier
	if err := repo.Create(ctx, "sample-1", sampleEntity{Name: "dup"}); !errors.As(err, &cls) || !cls.IsConflict() {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.As(err, &cls) || !cls.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	many, err := repo.GetMany(ctx, []string{"sample-1", "missing"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(many) != 1 || many["sample-1"].Data.Name != "alpha" {
		t.Fatalf("unexpected get many result %+v", many)
	}

	if err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, ok := pfirestore.TxFromContext(ctx); !ok {
			t.Errorf("expected transaction on context")
		}
		doc, found, err := repo.GetTx(ctx, tx, "sample-1")
		if err != nil || !found {
			return errors.Join(err, errors.New("sample-1 missing in tx"))
		}
		ref, err := repo.DocumentRef(ctx, "sample-1")
		if err != nil {
			return err
		}
		doc.Data.Count++
		return tx.Set(ref, doc.Data)
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}

	doc, err := repo.Get(ctx, "sample-1")
	if err != nil || doc.Data.Count != 2 {
		t.Fatalf("expected count=2 after tx, got %+v (%v)", doc.Data, err)
	}

	children := pfirestore.Sub[sampleChild](repo, "sample-1", "children")
	if _, err := children.Set(ctx, "c1", sampleChild{Label: "one"}); err != nil {
		t.Fatalf("set child: %v", err)
	}
	docs, err := children.Query(ctx, nil)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected one child, got %d (%v)", len(docs), err)
	}
	if err := children.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete child: %v", err)
	}
}

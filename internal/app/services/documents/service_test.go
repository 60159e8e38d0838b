package documents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/egov-platform/citizen-services/internal/app/services/documents"
	"github.com/egov-platform/citizen-services/internal/app/storage/memory"
	"github.com/egov-platform/citizen-services/internal/errors"
)

func TestCreateDocumentTrimsAndValidates(t *testing.T) {
	svc := documents.New(memory.New(), nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "user-1", "  Birth Certificate  ", " https://files.example.com/bc.pdf ")
	require.NoError(t, err)
	require.Equal(t, "Birth Certificate", doc.Title)
	require.Equal(t, "https://files.example.com/bc.pdf", doc.URL)

	_, err = svc.Create(ctx, "user-1", "   ", "https://files.example.com/x.pdf")
	require.True(t, errors.Is(err, errors.CodeValidation), "blank title: %v", err)

	_, err = svc.Create(ctx, "user-1", "Passport Scan", "")
	require.True(t, errors.Is(err, errors.CodeValidation), "blank url: %v", err)
}

func TestListDocumentsScopedToOwner(t *testing.T) {
	svc := documents.New(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "Birth Certificate", "https://files.example.com/bc.pdf")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-2", "Lease", "https://files.example.com/lease.pdf")
	require.NoError(t, err)

	mine, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Birth Certificate", mine[0].Title)
}

func TestDeleteDocument(t *testing.T) {
	svc := documents.New(memory.New(), nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "user-1", "Birth Certificate", "https://files.example.com/bc.pdf")
	require.NoError(t, err)

	err = svc.Delete(ctx, "user-2", doc.ID)
	require.True(t, errors.Is(err, errors.CodeNotFound), "foreign delete: %v", err)

	require.NoError(t, svc.Delete(ctx, "user-1", doc.ID))
	err = svc.Delete(ctx, "user-1", doc.ID)
	require.True(t, errors.Is(err, errors.CodeNotFound), "second delete: %v", err)
}

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
	"github.com/wolfeidau/authcore/internal/store/memory"
)

func TestAuditedCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("insert writes one create audit record", func(t *testing.T) {
		db := memory.NewDB()
		col := store.NewAuditedCollection[*models.Organization](db, store.CollectionOrganizations)
		audit := store.NewAuditStore(db)

		org, err := col.InsertOne(ctx, nil, &models.Organization{Name: "acme"}, models.SystemAuditContext())
		require.NoError(t, err)

		records, err := audit.ListByEntity(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, models.AuditActionCreate, records[0].Action)
		require.Equal(t, store.CollectionOrganizations, records[0].EntityType)
		require.True(t, records[0].Context.System)
		require.Nil(t, records[0].Context.PrincipalID)
	})

	t.Run("audit context carries the acting principal", func(t *testing.T) {
		db := memory.NewDB()
		col := store.NewAuditedCollection[*models.Organization](db, store.CollectionOrganizations)
		audit := store.NewAuditStore(db)

		accounts := store.NewAccountStore(db)
		actor, err := accounts.Upsert(ctx, nil, "idp|actor", models.SystemAuditContext())
		require.NoError(t, err)

		principal := models.AccountPrincipal(actor)
		org, err := col.InsertOne(ctx, nil, &models.Organization{Name: "acme"}, models.PrincipalAuditContext(principal))
		require.NoError(t, err)

		records, err := audit.ListByEntity(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.False(t, records[0].Context.System)
		require.NotNil(t, records[0].Context.PrincipalID)
		require.Equal(t, actor.ID, *records[0].Context.PrincipalID)
	})

	t.Run("update and delete each write their own record", func(t *testing.T) {
		db := memory.NewDB()
		col := store.NewAuditedCollection[*models.Organization](db, store.CollectionOrganizations)
		audit := store.NewAuditStore(db)

		org, err := col.InsertOne(ctx, nil, &models.Organization{Name: "acme"}, models.SystemAuditContext())
		require.NoError(t, err)

		_, err = col.FindOneAndUpdate(ctx, nil, store.Filter{"id": org.ID}, store.Update{"name": "renamed"}, models.SystemAuditContext())
		require.NoError(t, err)

		require.NoError(t, col.DeleteOne(ctx, nil, org.ID, models.SystemAuditContext()))

		records, err := audit.ListByEntity(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, records, 3)

		actions := []models.AuditAction{}
		for _, r := range records {
			actions = append(actions, r.Action)
		}
		require.Contains(t, actions, models.AuditActionCreate)
		require.Contains(t, actions, models.AuditActionUpdate)
		require.Contains(t, actions, models.AuditActionDelete)
	})

	t.Run("delete many writes one record per document", func(t *testing.T) {
		db := memory.NewDB()
		col := store.NewAuditedCollection[*models.Organization](db, store.CollectionOrganizations)
		audit := store.NewAuditStore(db)

		a, err := col.InsertOne(ctx, nil, &models.Organization{Name: "same"}, models.SystemAuditContext())
		require.NoError(t, err)
		b, err := col.InsertOne(ctx, nil, &models.Organization{Name: "same"}, models.SystemAuditContext())
		require.NoError(t, err)

		deleted, err := col.DeleteMany(ctx, nil, store.Filter{"name": "same"}, models.SystemAuditContext())
		require.NoError(t, err)
		require.Equal(t, int64(2), deleted)

		for _, id := range []any{a.ID, b.ID} {
			records, err := audit.List(ctx, store.Filter{"entity_id": id, "action": models.AuditActionDelete})
			require.NoError(t, err)
			require.Len(t, records, 1)
		}
	})

	t.Run("failed transaction leaves neither entity nor audit record", func(t *testing.T) {
		db := memory.NewDB()
		col := store.NewAuditedCollection[*models.Organization](db, store.CollectionOrganizations)
		audit := store.NewAuditStore(db)

		boom := errors.New("boom")
		err := db.WithinTx(ctx, func(sess store.Session) error {
			_, err := col.InsertOne(ctx, sess, &models.Organization{Name: "doomed"}, models.SystemAuditContext())
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)

		count, err := col.Count(ctx, nil, store.Filter{})
		require.NoError(t, err)
		require.Equal(t, int64(0), count)

		records, err := audit.List(ctx, store.Filter{})
		require.NoError(t, err)
		require.Empty(t, records)
	})
}

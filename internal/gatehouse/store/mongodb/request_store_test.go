package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

func TestRequestFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, requestFilter(store.RequestFilter{}))
}

func TestRequestFilter_ActiveOnlyOverridesStatus(t *testing.T) {
	got := requestFilter(store.RequestFilter{
		ResidentID: "res-1",
		Status:     types.StatusPending,
		ActiveOnly: true,
	})
	assert.Equal(t, bson.M{
		"residentId":     "res-1",
		"status":         types.StatusAuthorized,
		"groupFinalExit": false,
	}, got)
}

func TestRequestFilter_CreatedRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	got := requestFilter(store.RequestFilter{CreatedFrom: from, CreatedTo: to})
	assert.Equal(t, bson.M{"createdAt": bson.M{"$gte": from, "$lte": to}}, got)
}

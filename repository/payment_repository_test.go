package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/petalmart/commerce-backend/models"
)

// MongoDB rejects update paths with more than one positional operator, so the
// composed refund paths must carry exactly one "$" each.
func TestRefundSetComposesSinglePositionalPath(t *testing.T) {
	set := refundSet(bson.M{"status": models.RefundProcessed})

	assert.Equal(t, models.RefundProcessed, set["refunds.$.status"])
	assert.Contains(t, set, "updated_at")
	for k := range set {
		assert.LessOrEqual(t, strings.Count(k, "$"), 1, "update path %q", k)
	}
}

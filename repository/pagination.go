package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func findPage(page, limit int, sort bson.D) *options.FindOptions {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(sort)
}

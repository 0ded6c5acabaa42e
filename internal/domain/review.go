package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Store     primitive.ObjectID `bson:"store" json:"store"`
	Text      string             `bson:"text" json:"text"`
	Rating    int                `bson:"rating" json:"rating"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	// AuthorDetail is filled only when the caller opted into the author join.
	AuthorDetail *User `bson:"authorDetail,omitempty" json:"authorDetail,omitempty"`
}

type ReviewDraft struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// ValidateReview reports every violated review constraint at once.
func ValidateReview(r Review) error {
	ve := &ValidationError{}
	if strings.TrimSpace(r.Text) == "" {
		ve.Add("text", "review text is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		ve.Add("rating", "rating must be an integer between 1 and 5")
	}
	if r.Author.IsZero() {
		ve.Add("author", "author is required")
	}
	if r.Store.IsZero() {
		ve.Add("store", "store is required")
	}
	return ve.Err()
}

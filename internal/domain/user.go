package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is read-side only in this service: accounts are created and
// authenticated elsewhere, we just join them into views on request.
type User struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

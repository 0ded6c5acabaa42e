package domain

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a GeoJSON point plus the free-text address shown to users.
// Coordinates are [longitude, latitude], the GeoJSON axis order.
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address" json:"address"`
}

func (l Location) Lng() float64 { return l.Coordinates[0] }
func (l Location) Lat() float64 { return l.Coordinates[1] }

type Store struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Location    Location           `bson:"location" json:"location"`
	Photo       string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Author      primitive.ObjectID `bson:"author" json:"author"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// StoreDraft is the caller-supplied part of a store; id and slug are assigned
// on create.
type StoreDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Location    Location `json:"location"`
	Photo       string   `json:"photo"`
}

// StorePatch carries only the fields an update wants to touch; nil means
// "leave as is". Author and CreatedAt are set once and never patched.
type StorePatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Photo       *string   `json:"photo,omitempty"`
}

// ApplyTo merges the patch over the current record. Location, when present,
// is forced to point geometry before it ever reaches the 2dsphere index.
func (p StorePatch) ApplyTo(cur Store) Store {
	if p.Name != nil {
		cur.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		cur.Description = strings.TrimSpace(*p.Description)
	}
	if p.Tags != nil {
		cur.Tags = *p.Tags
	}
	if p.Location != nil {
		loc := *p.Location
		loc.Type = GeoPoint
		loc.Address = strings.TrimSpace(loc.Address)
		cur.Location = loc
	}
	if p.Photo != nil {
		cur.Photo = *p.Photo
	}
	return cur
}

const GeoPoint = "Point"

// Engine defaults.
const (
	DefaultSearchLimit = 5
	DefaultNearRadius  = 10000 // meters
	DefaultNearLimit   = 10
	DefaultTopLimit    = 10
)

// ValidateStore checks every §3 field constraint on an already-merged record
// and reports all violations together.
func ValidateStore(s Store) error {
	ve := &ValidationError{}
	if strings.TrimSpace(s.Name) == "" {
		ve.Add("name", "store name is required")
	}
	if s.Author.IsZero() {
		ve.Add("author", "author is required")
	}
	validateLocation(s.Location, ve)
	return ve.Err()
}

func validateLocation(l Location, ve *ValidationError) {
	if len(l.Coordinates) != 2 {
		ve.Add("location.coordinates", "coordinates must be [longitude, latitude]")
		return
	}
	if err := CheckCoordinates(l.Lng(), l.Lat()); err != nil {
		ve.Add("location.coordinates", err.(*InvalidQueryError).Reason)
	}
	if strings.TrimSpace(l.Address) == "" {
		ve.Add("location.address", "address is required")
	}
}

// CheckCoordinates rejects non-finite or out-of-range longitude/latitude.
func CheckCoordinates(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return &InvalidQueryError{Reason: "coordinates must be finite numbers"}
	}
	if lng < -180 || lng > 180 {
		return &InvalidQueryError{Reason: "longitude must be within [-180, 180]"}
	}
	if lat < -90 || lat > 90 {
		return &InvalidQueryError{Reason: "latitude must be within [-90, 90]"}
	}
	return nil
}

package types

import "time"

// ItemType distinguishes reports of lost objects from reports of found objects.
type ItemType string

// Supported item types.
const (
	// ItemTypeLost marks an item reported missing by its owner.
	ItemTypeLost ItemType = "lost"

	// ItemTypeFound marks an item someone picked up and reported.
	ItemTypeFound ItemType = "found"
)

// Valid reports whether the item type is one of the supported values.
func (t ItemType) Valid() bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// Opposite returns the counterpart type, used when matching lost
// reports against found reports.
func (t ItemType) Opposite() ItemType {
	if t == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}

// ItemStatus is the lifecycle state of a reported item.
type ItemStatus string

// Supported item statuses.
const (
	// ItemStatusActive means the item is open for claims.
	ItemStatusActive ItemStatus = "active"

	// ItemStatusClaimed means a claim against the item was approved.
	ItemStatusClaimed ItemStatus = "claimed"

	// ItemStatusReturned means the item was handed back to its owner.
	ItemStatusReturned ItemStatus = "returned"
)

// Valid reports whether the status is one of the supported values.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusActive, ItemStatusClaimed, ItemStatusReturned:
		return true
	}
	return false
}

// Item represents a reported lost or found object.
type Item struct {
	// ID is the unique identifier of the item.
	ID int `json:"id" db:"id"`

	// Name is the short human-readable name of the object.
	Name string `json:"name" db:"name"`

	// Description is the free-text description of the object.
	Description string `json:"description" db:"description"`

	// Type records whether the item was reported lost or found.
	Type ItemType `json:"item_type" db:"type"`

	// Location is the free-text place the item was lost or found.
	Location string `json:"location" db:"location"`

	// Date is the day the item was lost or found. Never in the future.
	Date time.Time `json:"date" db:"date"`

	// ImageKey is the object-storage key of the attached photo,
	// empty when no image was uploaded.
	ImageKey string `json:"image_key,omitempty" db:"image_key"`

	// Status is the lifecycle state of the item.
	Status ItemStatus `json:"status" db:"status"`

	// OwnerID identifies the user who reported the item.
	// Immutable after creation.
	OwnerID int `json:"owner_id" db:"owner_id"`

	// CreatedAt is the timestamp when the report was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the report.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ItemPatch carries a partial update to an item. Nil fields are left
// untouched. The owner is deliberately absent: ownership is immutable.
type ItemPatch struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Type        *ItemType   `json:"item_type"`
	Location    *string     `json:"location"`
	Date        *time.Time  `json:"date"`
	Status      *ItemStatus `json:"status"`
}

// ItemFilter is the conjunctive filter applied when listing items.
// Zero values mean "no constraint" for the respective dimension.
type ItemFilter struct {
	// Type restricts results to lost or found reports.
	Type ItemType

	// Status restricts results to a lifecycle state.
	Status ItemStatus

	// Location is matched as a case-insensitive substring.
	Location string

	// DateFrom and DateTo bound the event date inclusively.
	DateFrom time.Time
	DateTo   time.Time

	// OwnerID restricts results to a single reporter.
	OwnerID int

	// Search is matched case-insensitively against name and description.
	Search string

	// Limit and Offset paginate the date-descending ordering.
	Limit  int
	Offset int
}

// LocationCount is one entry of the top-locations statistic.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// ItemStats aggregates item counts for the statistics endpoint.
type ItemStats struct {
	TotalItems    int `json:"total_items"`
	LostItems     int `json:"lost_items"`
	FoundItems    int `json:"found_items"`
	ActiveItems   int `json:"active_items"`
	ClaimedItems  int `json:"claimed_items"`
	ReturnedItems int `json:"returned_items"`

	// RecentItems30Days counts items whose event date falls within the
	// trailing 30-day window.
	RecentItems30Days int `json:"recent_items_30_days"`

	// TopLocations lists the five most frequent locations.
	TopLocations []LocationCount `json:"top_locations"`
}

// SimilarItem pairs a candidate match with its similarity score.
type SimilarItem struct {
	// Item is the opposite-type report that scored at or above the
	// requested threshold.
	Item Item `json:"item"`

	// Score is the Jaccard similarity of the lower-cased word sets of
	// name and description, in [0, 1].
	Score float64 `json:"score"`
}

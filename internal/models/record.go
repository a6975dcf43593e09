package models

const (
	// IDField is the identity field of every stored record.
	IDField = "_id"
)

// Record is a stored entity as a field-name to value mapping.
type Record map[string]interface{}

// Filter selects records by field. A value is either the expected value
// or an operator map such as {"$gt": 3}.
type Filter map[string]interface{}

// Mutation describes changes to matching records. It is either in operator
// form ({"$set": {...}}) or a plain field map, which is treated as $set.
type Mutation map[string]interface{}

// ID returns the record identity as a string, or "" when it has none.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SortDirection is the ordering applied to a sort field.
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// String returns "asc" or "desc".
func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Valid reports whether d is Ascending or Descending.
func (d SortDirection) Valid() bool {
	return d == Ascending || d == Descending
}

// ParseSortDirection maps "asc"/"desc" (and "1"/"-1") to a SortDirection.
// Anything else is ascending.
func ParseSortDirection(s string) SortDirection {
	switch s {
	case "desc", "DESC", "-1", "descending":
		return Descending
	default:
		return Ascending
	}
}

// Sort orders query results by one field.
type Sort struct {
	Field     string
	Direction SortDirection
}

// FindOptions are the optional parts of a read.
type FindOptions struct {
	Sort       []Sort
	Projection []string
}

// UpdateResult summarises an update.
type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// DeleteResult summarises a removal.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

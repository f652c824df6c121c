package unitable

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrItemNotFound is returned when a primary-key lookup finds nothing.
// Empty index query results are valid and are not reported as this error.
var ErrItemNotFound = errors.New("item not found")

// ErrTypeMismatch is returned when a record's discriminator does not match
// the entity variant expected at the call site.
var ErrTypeMismatch = errors.New("entity type mismatch")

// ErrIndexNotReady is returned when a query targets an index that has not
// reached the Active state. The caller must retry later; the library never
// retries on its behalf.
var ErrIndexNotReady = errors.New("index not ready")

// ErrIndexCreating is returned when index creation is requested while
// another index on the same table is still provisioning. The backing store
// does not queue schema changes, so callers must serialize them.
var ErrIndexCreating = errors.New("another index is still creating")

// ErrNotApplicable is returned by routers configured with MismatchReport
// when a delete or high-level update targets a record of the wrong kind.
var ErrNotApplicable = errors.New("operation not applicable to entity type")

// ErrInvalidCursor is returned when a continuation cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// EntityType discriminates the logical record kinds sharing the table.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityOrder    EntityType = "order"
	EntityProduct  EntityType = "product"
)

// ParseEntityType converts a string into a known EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityCustomer, EntityOrder, EntityProduct:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Reserved and entity attribute names. The table stores the union of all
// entity attributes; unused attributes are absent, not null-filled.
const (
	AttributePK      = "pk"          // partition key, unique across all kinds
	AttributeType    = "entity_type" // discriminator
	AttributeCreated = "created_at"
	AttributeUpdated = "updated_at"

	AttributeID          = "id"
	AttributeName        = "name"
	AttributeAddress     = "address"
	AttributeEmail       = "email"
	AttributeCustomerID  = "customer_id"
	AttributeProductID   = "product_id"
	AttributeOrderDate   = "order_date"
	AttributeStatus      = "status"
	AttributeDescription = "description"
	AttributeQuantity    = "quantity"
	AttributeCost        = "cost"
)

// DateLayout is the wire format for order dates. Lexicographic order of
// formatted values matches chronological order, so the orders-by-date index
// can range over them directly.
const DateLayout = "2006-01-02 15:04:05"

// Record is the physical representation of an entity: a flat mapping of
// attribute name to scalar value. Writing a record whose partition key
// collides with an existing record overwrites the prior record entirely,
// regardless of its kind.
type Record map[string]any

// PartitionKey returns the record's partition key value.
func (r Record) PartitionKey() string { return r.String(AttributePK) }

// EntityType returns the record's discriminator value.
func (r Record) EntityType() EntityType { return EntityType(r.String(AttributeType)) }

// Has reports whether the attribute is present on the record.
func (r Record) Has(attr string) bool {
	_, ok := r[attr]
	return ok
}

// String returns the named attribute as a string, or "" when absent.
func (r Record) String(attr string) string {
	switch v := r[attr].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// Int returns the named attribute as an int. Numeric attributes may arrive
// as float64 from JSON or attributevalue decoding, or as decimal strings.
func (r Record) Int(attr string) int {
	switch v := r[attr].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Float returns the named attribute as a float64.
func (r Record) Float(attr string) float64 {
	switch v := r[attr].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Time parses the named attribute using DateLayout. The zero time is
// returned when the attribute is absent or malformed.
func (r Record) Time(attr string) time.Time {
	t, _ := time.Parse(DateLayout, r.String(attr))
	return t
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

package unitable

import (
	"fmt"
	"sort"
)

// KeyType is the scalar type of an index key attribute.
type KeyType string

const (
	KeyString KeyType = "S"
	KeyNumber KeyType = "N"
)

// IndexStatus is the provisioning state of a secondary index. Index creation
// is asynchronous; an index must reach Active before it can serve queries.
type IndexStatus int

const (
	IndexStatusUnknown IndexStatus = iota
	IndexStatusCreating
	IndexStatusActive
	IndexStatusFailed
)

func (s IndexStatus) String() string {
	switch s {
	case IndexStatusCreating:
		return "creating"
	case IndexStatusActive:
		return "active"
	case IndexStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IndexSpec describes a secondary index keyed by one partition attribute and
// an optional sort attribute. An index answers exactly the query shape it
// was built for; composite filtering beyond the declared pair is not
// supported.
type IndexSpec struct {
	Name               string
	PartitionAttribute string
	PartitionType      KeyType
	SortAttribute      string // empty for equality-only indexes
	SortType           KeyType
}

// AccessPattern names one supported non-primary-key query shape.
type AccessPattern string

const (
	// PatternOrdersByDate serves range scans over orders within a date
	// interval, inclusive at both ends.
	PatternOrdersByDate AccessPattern = "orders-by-date"
	// PatternOrdersByProduct serves equality scans for all orders of one
	// product.
	PatternOrdersByProduct AccessPattern = "orders-by-product"
	// PatternProductsByQuantity serves range scans for products with a
	// quantity strictly below a threshold.
	PatternProductsByQuantity AccessPattern = "products-by-quantity"
)

// Registry maps access patterns to the secondary index serving each one.
type Registry struct {
	specs map[AccessPattern]IndexSpec
}

// NewRegistry creates an empty index registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[AccessPattern]IndexSpec)}
}

// DefaultRegistry returns a registry with the three standard access
// patterns. The discriminator attribute doubles as the partition key of the
// two range indexes, so each of those indexes effectively scopes its scan
// to one entity kind.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(PatternOrdersByDate, IndexSpec{
		Name:               string(PatternOrdersByDate),
		PartitionAttribute: AttributeType,
		PartitionType:      KeyString,
		SortAttribute:      AttributeOrderDate,
		SortType:           KeyString,
	})
	reg.Register(PatternOrdersByProduct, IndexSpec{
		Name:               string(PatternOrdersByProduct),
		PartitionAttribute: AttributeProductID,
		PartitionType:      KeyString,
	})
	reg.Register(PatternProductsByQuantity, IndexSpec{
		Name:               string(PatternProductsByQuantity),
		PartitionAttribute: AttributeType,
		PartitionType:      KeyString,
		SortAttribute:      AttributeQuantity,
		SortType:           KeyNumber,
	})
	return reg
}

// Register binds an access pattern to an index specification. Re-binding an
// existing pattern is an error.
func (reg *Registry) Register(pattern AccessPattern, spec IndexSpec) error {
	if _, exists := reg.specs[pattern]; exists {
		return fmt.Errorf("access pattern %q already registered", pattern)
	}
	if spec.Name == "" || spec.PartitionAttribute == "" {
		return fmt.Errorf("index spec for %q requires a name and partition attribute", pattern)
	}
	reg.specs[pattern] = spec
	return nil
}

// Lookup returns the index spec serving the access pattern.
func (reg *Registry) Lookup(pattern AccessPattern) (IndexSpec, error) {
	spec, ok := reg.specs[pattern]
	if !ok {
		return IndexSpec{}, fmt.Errorf("no index registered for access pattern %q", pattern)
	}
	return spec, nil
}

// Specs returns all registered index specs, ordered by index name.
func (reg *Registry) Specs() []IndexSpec {
	out := make([]IndexSpec, 0, len(reg.specs))
	for _, spec := range reg.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package unitable

import (
	"fmt"
	"time"
)

// Entity is implemented by the logical record kinds stored in the table.
type Entity interface {
	// Kind returns the discriminator stamped on the physical record.
	Kind() EntityType
	// Key returns the entity's identifier. It doubles as the default
	// partition key, so identifiers share one namespace across all kinds
	// unless the caller supplies a distinct key via WithPartitionKey.
	Key() string
	// MarshalRecord copies the entity's attributes onto the record.
	MarshalRecord(Record) error
	// UnmarshalRecord populates the entity from the record's attributes.
	UnmarshalRecord(Record) error
}

// MarshalOptions contains configuration options for marshaling entities to records.
type MarshalOptions struct {
	PartitionKey string    // overrides the entity key as the partition key
	Created      time.Time // creation timestamp
	Updated      time.Time // modification timestamp
	Tick         Clock     // function to get current time for timestamps
}

func (mo *MarshalOptions) apply(opts []func(*MarshalOptions)) {
	for _, opt := range opts {
		opt(mo)
	}
}

// WithPartitionKey assigns an explicit partition key instead of the entity key.
func WithPartitionKey(pk string) func(*MarshalOptions) {
	return func(mo *MarshalOptions) { mo.PartitionKey = pk }
}

// WithClock overrides the timestamp source.
func WithClock(tick Clock) func(*MarshalOptions) {
	return func(mo *MarshalOptions) { mo.Tick = tick }
}

func newMarshalOptions(opts []func(*MarshalOptions)) MarshalOptions {
	options := MarshalOptions{Tick: DefaultClock}
	options.apply(opts)
	if options.Created.IsZero() {
		options.Created = options.Tick()
	}
	if options.Updated.IsZero() {
		options.Updated = options.Tick()
	}
	return options
}

// MarshalEntity flattens the entity into a physical record, stamping the
// discriminator, partition key, and timestamps.
func MarshalEntity(e Entity, opts ...func(*MarshalOptions)) (Record, error) {
	options := newMarshalOptions(opts)

	pk := options.PartitionKey
	if pk == "" {
		pk = e.Key()
	}
	if pk == "" {
		return nil, fmt.Errorf("entity %s has no key", e.Kind())
	}

	rec := Record{
		AttributePK:      pk,
		AttributeType:    string(e.Kind()),
		AttributeCreated: options.Created.Format(time.RFC3339),
		AttributeUpdated: options.Updated.Format(time.RFC3339),
	}

	if err := e.MarshalRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", e.Kind(), err)
	}
	return rec, nil
}

// UnmarshalEntity inflates a record into the entity variant named by its
// discriminator.
func UnmarshalEntity(rec Record) (Entity, error) {
	var e Entity
	switch rec.EntityType() {
	case EntityCustomer:
		e = &Customer{}
	case EntityOrder:
		e = &Order{}
	case EntityProduct:
		e = &Product{}
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %q", ErrTypeMismatch, rec.String(AttributeType))
	}
	if err := e.UnmarshalRecord(rec); err != nil {
		return nil, err
	}
	return e, nil
}

func expectKind(rec Record, want EntityType) error {
	if got := rec.EntityType(); got != want {
		return fmt.Errorf("%w: expected %s, got %q", ErrTypeMismatch, want, got)
	}
	return nil
}

// Customer is a person that places orders.
type Customer struct {
	ID      string
	Name    string
	Address string
	Email   string
}

func (c *Customer) Kind() EntityType { return EntityCustomer }
func (c *Customer) Key() string      { return c.ID }

func (c *Customer) MarshalRecord(rec Record) error {
	rec[AttributeID] = c.ID
	rec[AttributeName] = c.Name
	rec[AttributeAddress] = c.Address
	rec[AttributeEmail] = c.Email
	return nil
}

func (c *Customer) UnmarshalRecord(rec Record) error {
	c.ID = rec.String(AttributeID)
	c.Name = rec.String(AttributeName)
	c.Address = rec.String(AttributeAddress)
	c.Email = rec.String(AttributeEmail)
	return nil
}

// AsCustomer converts a record back into a Customer. It fails with
// ErrTypeMismatch when the record's discriminator names a different kind.
func AsCustomer(rec Record) (Customer, error) {
	var c Customer
	if err := expectKind(rec, EntityCustomer); err != nil {
		return c, err
	}
	return c, c.UnmarshalRecord(rec)
}

// Order records a purchase of a product by a customer.
type Order struct {
	ID         string
	CustomerID string
	ProductID  string
	OrderDate  time.Time
	Status     string
}

func (o *Order) Kind() EntityType { return EntityOrder }
func (o *Order) Key() string      { return o.ID }

func (o *Order) MarshalRecord(rec Record) error {
	rec[AttributeID] = o.ID
	rec[AttributeCustomerID] = o.CustomerID
	rec[AttributeProductID] = o.ProductID
	rec[AttributeOrderDate] = o.OrderDate.Format(DateLayout)
	rec[AttributeStatus] = o.Status
	return nil
}

func (o *Order) UnmarshalRecord(rec Record) error {
	o.ID = rec.String(AttributeID)
	o.CustomerID = rec.String(AttributeCustomerID)
	o.ProductID = rec.String(AttributeProductID)
	o.Status = rec.String(AttributeStatus)

	date, err := time.Parse(DateLayout, rec.String(AttributeOrderDate))
	if err != nil {
		return fmt.Errorf("failed to parse order date: %w", err)
	}
	o.OrderDate = date
	return nil
}

// AsOrder converts a record back into an Order. It fails with
// ErrTypeMismatch when the record's discriminator names a different kind.
func AsOrder(rec Record) (Order, error) {
	var o Order
	if err := expectKind(rec, EntityOrder); err != nil {
		return o, err
	}
	return o, o.UnmarshalRecord(rec)
}

// Product is an item held in inventory.
type Product struct {
	ID          string
	Description string
	Quantity    int
	Cost        float64
}

func (p *Product) Kind() EntityType { return EntityProduct }
func (p *Product) Key() string      { return p.ID }

func (p *Product) MarshalRecord(rec Record) error {
	rec[AttributeID] = p.ID
	rec[AttributeDescription] = p.Description
	rec[AttributeQuantity] = p.Quantity
	rec[AttributeCost] = p.Cost
	return nil
}

func (p *Product) UnmarshalRecord(rec Record) error {
	p.ID = rec.String(AttributeID)
	p.Description = rec.String(AttributeDescription)
	p.Quantity = rec.Int(AttributeQuantity)
	p.Cost = rec.Float(AttributeCost)
	return nil
}

// AsProduct converts a record back into a Product. It fails with
// ErrTypeMismatch when the record's discriminator names a different kind.
func AsProduct(rec Record) (Product, error) {
	var p Product
	if err := expectKind(rec, EntityProduct); err != nil {
		return p, err
	}
	return p, p.UnmarshalRecord(rec)
}

package order

import "time"

// TicketStatus represents the current state of a ticket.
type TicketStatus string

const (
	StatusOpen      TicketStatus = "open"
	StatusCompleted TicketStatus = "completed"
	StatusClosed    TicketStatus = "closed"
	StatusDeleted   TicketStatus = "deleted"
)

// IsValid returns true if the status is one of the valid values.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusCompleted, StatusClosed, StatusDeleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s TicketStatus) Terminal() bool {
	return s.IsValid() && s != StatusOpen
}

// Ticket is one group order tracked from link submission to completion.
// The server owns the record; the client holds at most one active reference.
type Ticket struct {
	ID             string            `json:"id"`
	Link           string            `json:"link,omitempty"`
	Status         TicketStatus      `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
	CompletionLink string            `json:"completion_link,omitempty"`
	Validation     *ValidationResult `json:"validation_data,omitempty"`
}

// Item is a single cart line from a validated group link.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// ValidationResult is the outcome of validating a group order link.
// Err and the quote fields are mutually exclusive; Message carries the
// synthetic success text for a 204 response.
type ValidationResult struct {
	Err               string  `json:"error,omitempty"`
	Message           string  `json:"message,omitempty"`
	RestaurantName    string  `json:"restaurantName,omitempty"`
	DeliveryAddress   string  `json:"deliveryAddress,omitempty"`
	Items             []Item  `json:"items,omitempty"`
	EstimatedSubtotal float64 `json:"estimatedSubtotal,omitempty"`
	OurPrice          float64 `json:"ourPrice,omitempty"`
	EstimatedSavings  float64 `json:"estimatedSavings,omitempty"`
}

// Failed reports whether the result carries an error instead of a quote.
func (v *ValidationResult) Failed() bool {
	return v != nil && v.Err != ""
}

// MessageOrigin identifies who produced a chat message.
type MessageOrigin string

const (
	OriginUser   MessageOrigin = "user"
	OriginAgent  MessageOrigin = "agent"
	OriginSystem MessageOrigin = "system"
)

// ChatMessage is one entry in the active ticket's transcript.
type ChatMessage struct {
	From    MessageOrigin `json:"from"`
	Content string        `json:"content"`
	Sender  string        `json:"sender,omitempty"`
}

// ServiceStatus is the process-wide open/closed state of the service.
type ServiceStatus struct {
	IsOpen  bool   `json:"isOpen"`
	Message string `json:"message"`
}

// ChangeKind classifies what part of the order state changed.
type ChangeKind string

const (
	ChangeTicket     ChangeKind = "ticket"
	ChangeMessages   ChangeKind = "messages"
	ChangeValidation ChangeKind = "validation"
	ChangeService    ChangeKind = "service"
	ChangeReset      ChangeKind = "reset"
)

// Change is emitted to listeners after every state mutation.
type Change struct {
	Kind     ChangeKind
	Snapshot Snapshot
}

// OnChangeListener receives order state change notifications.
// Implementations must not block and must not call back into the Machine.
type OnChangeListener interface {
	OnOrderChange(Change)
}

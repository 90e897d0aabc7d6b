package leads

import (
	"context"
	"time"
)

// Lead is a contact-form submission. Written once, never updated.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
}

type Repository interface {
	CreateLead(ctx context.Context, l *Lead) error
	// ListLeads returns newest first together with the total count.
	ListLeads(ctx context.Context, offset, limit int) ([]Lead, int, error)
}

package domain

import "time"

type Complaint struct {
	ID             string    `json:"id"`
	FullName       string    `json:"fullName"`
	DocumentType   string    `json:"documentType,omitempty"`
	DocumentNumber string    `json:"documentNumber"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	Type           string    `json:"type,omitempty"` // reclamo | queja
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

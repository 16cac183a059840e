package entities

import "time"

// Customer owns jobs. Only the fields the pipeline needs are modelled here.
type Customer struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Email     string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone     string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Address   string    `json:"address,omitempty" dynamodbav:"address,omitempty"`
	CreatedBy string    `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// User is the read-only view of an account, used to attribute audit records.
type User struct {
	ID       string `json:"id" dynamodbav:"id"`
	Name     string `json:"name" dynamodbav:"name"`
	Email    string `json:"email" dynamodbav:"email"`
	IsActive bool   `json:"isActive" dynamodbav:"isActive"`
}

package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleGuest    Role = "guest"
	RoleAdmin    Role = "admin"
)

type Customer struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

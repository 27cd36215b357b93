package users

import (
	"api-boilerplate/internal/database"
	"api-boilerplate/internal/domain"
)

func init() {
	database.RegisterModel(&domain.User{})
}

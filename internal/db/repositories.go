package db

import "gorm.io/gorm"

type Repositories struct {
	Users   *UserRepository
	Intakes *IntakeRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:   NewUserRepository(database),
		Intakes: NewIntakeRepository(database),
	}
}

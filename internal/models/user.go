package models

import "gorm.io/gorm"

type Role string

const (
	RoleUser  Role = "Usuario"
	RoleAdmin Role = "Admin"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "Activo"
	StatusInactive AccountStatus = "Inactivo"
	StatusBanned   AccountStatus = "Baneado"
)

const DefaultUserImage = "usuarioDefecto.png"

type User struct {
	gorm.Model

	Nickname     string        `gorm:"uniqueIndex;size:16;not null"`
	Email        string        `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string        `gorm:"not null"`
	Role         Role          `gorm:"size:16;not null;default:Usuario"`
	Status       AccountStatus `gorm:"size:16;not null;default:Activo"`
	Image        string        `gorm:"size:255;not null;default:usuarioDefecto.png"`

	// Relationships
	Novels  []Novel  `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Follows []Follow `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Username        string         `gorm:"uniqueIndex;not null"`
	PasswordHash    string         `gorm:"not null"`
	Birthday        datatypes.Date `gorm:"not null"`
	CanBeContacted  bool           `gorm:"default:false"`
	CanDataBeShared bool           `gorm:"default:false"`
	IsSuperuser     bool           `gorm:"default:false"`
	IsStaff         bool           `gorm:"default:false"`

	// Relationships
	AuthoredProjects []Project     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Contributions    []Contributor `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	AuthoredIssues   []Issue       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	AssignedIssues   []Issue       `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	AuthoredComments []Comment     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

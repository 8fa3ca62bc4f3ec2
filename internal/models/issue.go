package models

import "gorm.io/gorm"

type Issue struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	Tag         string `gorm:"not null"`                // "BUG", "FEATURE", "TASK"
	Priority    string `gorm:"not null"`                // "LOW", "MEDIUM", "HIGH"
	Status      string `gorm:"not null;default:'TODO'"` // "TODO", "IN_PROGRESS", "FINISHED"
	ProjectID   uint   `gorm:"not null;index"`
	AuthorID    uint   `gorm:"not null;index"`
	AssigneeID  *uint  `gorm:"index"`

	// Relationships
	Project  Project   `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Assignee *User     `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Comments []Comment `gorm:"foreignKey:IssueID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

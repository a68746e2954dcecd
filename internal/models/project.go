package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberRole defines a member's role in a project.
type MemberRole string

const (
	// MemberRoleOwner is the project owner role.
	MemberRoleOwner MemberRole = "owner"
	// MemberRoleAdmin can manage every token and widget setting of the project.
	MemberRoleAdmin MemberRole = "admin"
	// MemberRoleMember is the default member role.
	MemberRoleMember MemberRole = "member"
)

// CanManageAll reports whether the role may act on resources created by other members.
func (r MemberRole) CanManageAll() bool {
	return r == MemberRoleOwner || r == MemberRoleAdmin
}

// Project is a tenant. Tokens, testimonials, the widget config and the collect link all hang off it.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Slug      string    `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	OwnerID   string    `gorm:"size:191;not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProjectMember maps an externally authenticated member to a project.
// MemberID is the auth provider's subject claim.
type ProjectMember struct {
	ProjectID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"project_id"`
	Project   *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	MemberID  string     `gorm:"size:191;primaryKey" json:"member_id"`
	Role      MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProjectMember) TableName() string {
	return "project_members"
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

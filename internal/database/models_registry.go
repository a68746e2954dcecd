package database

import "quotewall/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.ProjectMember{},
		&models.CollectionToken{},
		&models.Testimonial{},
		&models.WidgetConfig{},
		&models.CollectLink{},
	}
}

package models

// ModelsToAutoMigrate lists every model owned by this module.
func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&Subscription{},
		&Document{},
		&DocumentMeta{},
	}
}

package models

// MigrationType identifies which data domain a job migrates
type MigrationType string

const (
	MigrationTypeMail     MigrationType = "mail"
	MigrationTypeContacts MigrationType = "contacts"
	MigrationTypeCalendar MigrationType = "calendar"
	MigrationTypeDrive    MigrationType = "drive"
	MigrationTypeAll      MigrationType = "all"
)

// IsValid returns true for one of the five accepted migration types
func (t MigrationType) IsValid() bool {
	switch t {
	case MigrationTypeMail, MigrationTypeContacts, MigrationTypeCalendar, MigrationTypeDrive, MigrationTypeAll:
		return true
	}
	return false
}

// IsComposite returns true for the "all" type that runs every sub-migration
func (t MigrationType) IsComposite() bool {
	return t == MigrationTypeAll
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FileDescriptors stores a file list as a JSONB column.
type FileDescriptors []FileDescriptor

// Value implements driver.Valuer.
func (f FileDescriptors) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *FileDescriptors) Scan(src interface{}) error {
	if src == nil {
		*f = FileDescriptors{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported file descriptor column type %T", src)
	}
	if len(raw) == 0 {
		*f = FileDescriptors{}
		return nil
	}
	return json.Unmarshal(raw, f)
}

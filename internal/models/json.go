package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// WordIDList stores an ordered list of word IDs in a jsonb column.
type WordIDList []string

func (l WordIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal word id list: %w", err)
	}
	return string(b), nil
}

func (l *WordIDList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan word id list: unsupported type %T", src)
	}
	return json.Unmarshal(b, (*[]string)(l))
}

func (s PlanStats) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal plan stats: %w", err)
	}
	return string(b), nil
}

func (s *PlanStats) Scan(src any) error {
	if src == nil {
		*s = PlanStats{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan plan stats: unsupported type %T", src)
	}
	return json.Unmarshal(b, s)
}

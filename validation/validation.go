package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Length flags value unless it is exactly n bytes. Empty values are left to Required.
func Length(field, value string, n int, v Violations) {
	if value != "" && len(value) != n {
		v[field] = "invalid_length"
	}
}

// Charset flags value if it contains a byte outside allowed.
func Charset(field, value, allowed string, v Violations) {
	for i := 0; i < len(value); i++ {
		if strings.IndexByte(allowed, value[i]) < 0 {
			v[field] = "invalid_characters"
			return
		}
	}
}

// PositiveID flags a zero identifier.
func PositiveID(field string, id uint64, v Violations) {
	if id == 0 {
		v[field] = "must_be_positive"
	}
}

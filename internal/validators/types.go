package validators

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/stacklok/cmdb-registry-server/internal/model"
)

// typeValidators maps each field type to its value predicate
var typeValidators = map[model.FieldType]func(any) bool{
	model.FieldTypeString:   isString,
	model.FieldTypeLong:     isIntegral,
	model.FieldTypeDouble:   isFloat,
	model.FieldTypeDatetime: isIntegral,
	model.FieldTypeIP:       isIPv4,
}

// ValidateType reports whether value conforms to the field type. The type
// must be one of model.FieldTypes; schemas are validated before their
// entities, so an unknown type here is a programming error and panics.
func ValidateType(t model.FieldType, value any) bool {
	validate, ok := typeValidators[t]
	if !ok {
		panic(fmt.Sprintf("validators: no type validator for field type %q", t))
	}
	return validate(value)
}

// ValidateName checks that name is non-empty and consists of ASCII letters and digits only
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is require")
	}
	for _, r := range name {
		if !isASCIIAlnum(r) {
			return fmt.Errorf("name error: %q contains invalid character %q", name, r)
		}
	}
	return nil
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

func isIntegral(value any) bool {
	switch v := value.(type) {
	case json.Number:
		s := v.String()
		if strings.ContainsAny(s, ".eE") {
			return false
		}
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isFloat(value any) bool {
	switch v := value.(type) {
	case json.Number:
		if !strings.ContainsAny(v.String(), ".eE") {
			return false
		}
		_, err := v.Float64()
		return err == nil
	case float32, float64:
		return true
	default:
		return false
	}
}

func isIPv4(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Is4()
}

package enums

import "fmt"

// BillResourceType classifies a stored transport document blob.
// PDFs are stored as raw objects, everything else as images.
type BillResourceType string

const (
	BillResourceTypeRaw   BillResourceType = "raw"
	BillResourceTypeImage BillResourceType = "image"
)

var validBillResourceTypes = []BillResourceType{
	BillResourceTypeRaw,
	BillResourceTypeImage,
}

// String implements fmt.Stringer.
func (b BillResourceType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillResourceType.
func (b BillResourceType) IsValid() bool {
	for _, candidate := range validBillResourceTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillResourceType converts raw input into a BillResourceType.
func ParseBillResourceType(value string) (BillResourceType, error) {
	for _, candidate := range validBillResourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill resource type %q", value)
}

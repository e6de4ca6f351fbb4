package shared

import (
	"strings"

	"github.com/ttacon/libphonenumber"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	core "github.com/salonpos/salonpos/internal/shared"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "US"

// PhoneNormalizer converts user supplied phone numbers to E.164.
type PhoneNormalizer struct {
	Region string
}

// Normalize returns the E.164 form of raw. Empty input stays empty.
func (p PhoneNormalizer) Normalize(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	region := strings.ToUpper(strings.TrimSpace(p.Region))
	if region == "" {
		region = DefaultRegion
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", core.NewValidationError(field, "must be a valid phone number")
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

var titleCaser = cases.Title(language.English)

// TitleName trims, collapses inner whitespace and title-cases a display name.
func TitleName(raw string) string {
	return titleCaser.String(strings.Join(strings.Fields(raw), " "))
}

// CleanText trims and collapses whitespace without changing case.
func CleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

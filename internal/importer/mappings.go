package importer

import (
	"strings"

	"bidtrack/models"
)

// Categorical mappings from the spreadsheet vocabulary to the catalog enums.
// Unknown values fall back to a documented default instead of failing.

var regionMap = map[string]string{
	"WAF":         "AMME", // West Africa
	"SAM":         "NSA",  // South America
	"GOM":         "NSA",  // Gulf of Mexico
	"North Sea":   "Europe",
	"APAC":        "Asia",
	"Middle East": "AMME",
}

var countryMap = map[string]string{
	"Nigeria":           "NG",
	"Brazil":            "BR",
	"Mexico":            "MX",
	"UK":                "GB",
	"USA":               "US",
	"Norway":            "NO",
	"Malaysia":          "MY",
	"India":             "IN",
	"Egypt":             "EG",
	"Guyana":            "GY",
	"DRC":               "CD",
	"Ivory Coast":       "CI",
	"Saudi Arabia":      "SA",
	"Ghana":             "GH",
	"Angola":            "AO",
	"Suriname":          "SR",
	"Australia":         "AU",
	"Trinidad":          "TT",
	"Cameroon":          "CM",
	"Israel":            "IL",
	"Senegal":           "SN",
	"Equatorial Guinea": "GQ",
	"Qatar":             "QA",
	"Vietnam":           "VN",
	"Worldwide":         "US",
}

// Default country per region, for sources that only carry a region.
var regionCountryMap = map[string]string{
	"NSA":         "BR",
	"AMME":        "NG",
	"Asia":        "MY",
	"Europe":      "NO",
	"Australasia": "AU",
	"Global":      "US",
}

var bidTypeMap = map[string]string{
	"RFP": models.BidTypeRFP,
	"RFQ": models.BidTypeRFQ,
	"RFI": models.BidTypeRFI,
	"MC":  models.BidTypeMC,
	"DIR": models.BidTypeDR,
	"BQ":  models.BidTypeBQ,
}

var statusMap = map[string]string{
	"Lost":               models.StatusLost,
	"Award":              models.StatusWon,
	"Won":                models.StatusWon,
	"No Sale":            models.StatusCancelled,
	"Submitted-Complete": models.StatusSubmitted,
	"In Progress":        models.StatusOngoing,
	"See RFP opp":        models.StatusOngoing,
}

var surveyTypeToTechnique = map[string]string{
	"ROV":         "ROV",
	"NOAR":        "NOAR",
	"ROV-NOAR":    "ROV",
	"TS-NOAR":     "NOAR",
	"TS-NOAR-ROV": "ROV",
}

var nodeTypeToSystem = map[string]string{
	"ZXPLR":  "ZXPLR",
	"Z700":   "Z700",
	"MASS":   "MASS",
	"GPR":    "GPR300",
	"GPR300": "GPR300",
}

// MapRegion returns a catalog region or nil when the source value maps to
// nothing recognizable.
func MapRegion(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, r := range models.Regions {
		if value == r {
			return &r
		}
	}
	if mapped, ok := regionMap[value]; ok {
		return &mapped
	}
	return nil
}

// MapCountry maps a country name to an ISO code, defaulting to US for unknown
// or worldwide scopes.
func MapCountry(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "US"
	}
	if code, ok := countryMap[name]; ok {
		return code
	}
	return "US"
}

// CountryForRegion picks a representative country when the source only names
// a region.
func CountryForRegion(region *string) string {
	if region != nil {
		if code, ok := regionCountryMap[*region]; ok {
			return code
		}
	}
	return "US"
}

// MapBidType defaults to a budgetary quotation.
func MapBidType(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if mapped, ok := bidTypeMap[value]; ok {
		return mapped
	}
	return models.BidTypeBQ
}

// MapStatus defaults to Ongoing.
func MapStatus(value string) string {
	value = strings.TrimSpace(value)
	if mapped, ok := statusMap[value]; ok {
		return mapped
	}
	return models.StatusOngoing
}

// MapOBNTechnique returns nil for survey types that are not OBN techniques
// (PRM, CCS, NE-UHR and the like).
func MapOBNTechnique(surveyType string) *string {
	key := strings.ToUpper(strings.TrimSpace(surveyType))
	if mapped, ok := surveyTypeToTechnique[key]; ok {
		return &mapped
	}
	return nil
}

// MapOBNSystem maps a node type to a known OBN system; recognized systems map
// to themselves, anything else non-empty is OTHER.
func MapOBNSystem(nodeType string) *string {
	key := strings.ToUpper(strings.TrimSpace(nodeType))
	if key == "" {
		return nil
	}
	if mapped, ok := nodeTypeToSystem[key]; ok {
		return &mapped
	}
	other := "OTHER"
	return &other
}

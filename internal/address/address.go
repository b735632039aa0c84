package address

// Address is the billing address block SureTax expects on every item.
type Address struct {
	PrimaryAddressLine string `json:"PrimaryAddressLine"`
	City               string `json:"City"`
	State              string `json:"State"`
	PostalCode         string `json:"PostalCode"`
	Country            string `json:"Country"`
	VerifyAddress      int    `json:"VerifyAddress"`
}

const fallbackPostalCode = "45414"

// Resolve derives the minimal mailing address for a postal code. An empty
// code falls back to the company remittance zip. Total function.
func Resolve(zipCode string) Address {
	if zipCode == "" {
		zipCode = fallbackPostalCode
	}
	return Address{
		PrimaryAddressLine: "N/A",
		City:               "Cleveland",
		State:              "OH",
		PostalCode:         zipCode,
		Country:            "US",
		VerifyAddress:      0,
	}
}

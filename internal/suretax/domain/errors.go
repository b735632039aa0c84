package domain

import "fmt"

// headerErrors is the agency's catalogue of header-level rejection codes.
var headerErrors = map[string]string{
	"1100": "Failure - General Failure",
	"1101": "Failure - There is a format error in the web request - Input string was not in a correct format.",
	"1110": "Failure - Data Month Required",
	"1120": "Failure - Data Year Required",
	"1121": "Failure - Invalid Data Year/Month - Must be a published Data Year/Month",
	"1130": "Failure - Client Number Required",
	"1131": "Failure - Invalid Client Number",
	"1141": "Failure - Invalid Business Unit",
	"1150": "Failure - Validation Key Required",
	"1151": "Failure - Invalid Validation Key",
	"1160": "Failure - Total Revenue Required",
	"1171": "Failure - Invalid Client Tracking Code",
	"1190": "Failure - Response Group Code Required",
	"1191": "Failure - Invalid Response Group Code",
	"1200": "Failure - Response Type Required",
	"1201": "Failure - Invalid Response Type",
	"1210": "Failure - Return File Code Required",
	"1211": "Failure - Invalid Return File Code",
	"1220": "Failure - Item List Required",
	"1510": "Failure - Transaction is more than 60 days old (generated from Cancel Request method)",
}

// HeaderError is an agency-side rejection of the whole submission.
type HeaderError struct {
	Code    string
	Message string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("suretax: header rejection %s: %s", e.Code, e.Message)
}

// NewHeaderError builds a HeaderError for the given agency response code,
// falling back to the raw header message for uncatalogued codes.
func NewHeaderError(code, headerMessage string) *HeaderError {
	message, ok := headerErrors[code]
	if !ok {
		message = headerMessage
		if message == "" {
			message = fmt.Sprintf("Unknown Error %s", code)
		}
	}
	return &HeaderError{Code: code, Message: message}
}

// IsRejection reports whether the envelope signals a header-level failure.
// SureTax marks success with Successful "Y" and a 9999 response code.
func (e *ResponseEnvelope) IsRejection() bool {
	if e.Successful == "N" {
		return true
	}
	_, catalogued := headerErrors[e.ResponseCode]
	return catalogued
}

package domain

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ResponseEnvelope is the decoded body of a SureTax response. The service
// nests by value (transaction > group > item > tax > calc tier); relational
// keys are reconstructed at persistence time.
type ResponseEnvelope struct {
	Successful     string        `json:"Successful"`
	ResponseCode   string        `json:"ResponseCode"`
	HeaderMessage  string        `json:"HeaderMessage"`
	ClientTracking string        `json:"ClientTracking"`
	TransID        int64         `json:"TransId"`
	MasterTransID  int64         `json:"MasterTransId"`
	BusinessUnit   string        `json:"BusinessUnit"`
	DataMonth      string        `json:"DataMonth"`
	DataYear       string        `json:"DataYear"`
	TotalTax       string        `json:"TotalTax"`
	ItemMessages   []ItemMessage `json:"ItemMessages"`
	GroupList      []Group       `json:"GroupList"`
}

// Group carries invoice-level context above its tax items; the reconciler
// propagates these three fields down onto every item when flattening.
type Group struct {
	LineNumber     string    `json:"LineNumber"`
	InvoiceNumber  string    `json:"InvoiceNumber"`
	CustomerNumber string    `json:"CustomerNumber"`
	StateCode      string    `json:"StateCode"`
	TaxList        []TaxItem `json:"TaxList"`
}

// TaxItem is one billed line within a group.
type TaxItem struct {
	ItemID                  string         `json:"ItemID"`
	LineNumber              string         `json:"LineNumber"`
	InvoiceNumber           string         `json:"InvoiceNumber"`
	CustomerNumber          string         `json:"CustomerNumber"`
	ServiceDescription      string         `json:"ServiceDescription"`
	ServiceGroupDescription string         `json:"ServiceGroupDescription"`
	Revenue                 float64        `json:"Revenue"`
	Fee                     float64        `json:"Fee"`
	Tax                     float64        `json:"Tax"`
	TaxOnTax                float64        `json:"TaxonTax"`
	TransTypeCode           string         `json:"TransTypeCode"`
	Units                   int            `json:"Units"`
	Geocode                 string         `json:"Geocode"`
	CityName                string         `json:"CityName"`
	CountyName              string         `json:"CountyName"`
	StateCode               string         `json:"StateCode"`
	ZipCode                 string         `json:"ZipCode"`
	Plus4                   string         `json:"Plus4"`
	ProductGroup            string         `json:"ProductGroup"`
	ProductItem             string         `json:"ProductItem"`
	TaxBreakdown            []TaxBreakdown `json:"TaxBreakdown"`
}

// TaxBreakdown is one taxing-authority line under an item.
type TaxBreakdown struct {
	ItemID           string         `json:"ItemID"`
	TaxID            string         `json:"TaxID"`
	DetailedTaxDesc  string         `json:"DetailedTaxDesc"`
	FeeRate          float64        `json:"FeeRate"`
	PercentTaxable   float64        `json:"PercentTaxable"`
	TaxAmt           float64        `json:"TaxAmt"`
	TaxAuthorityName string         `json:"TaxAuthorityName"`
	TaxAuthorityType string         `json:"TaxAuthorityType"`
	TaxCat           string         `json:"TaxCat"`
	TaxRate          float64        `json:"TaxRate"`
	TaxType          string         `json:"TaxType"`
	TaxTypeDesc      string         `json:"TaxTypeDesc"`
	TaxOnTaxAmt      float64        `json:"TaxonTaxAmt"`
	Tier             int            `json:"Tier"`
	CalcLog          []CalcLogEntry `json:"CalcLog"`
}

// CalcLogEntry is one calculation tier under a tax line.
type CalcLogEntry struct {
	LogID                       string  `json:"LogID"`
	MaxTax                      float64 `json:"MaxTax"`
	MaxTaxBase                  float64 `json:"MaxTaxBase"`
	MaxTaxBaseNonTaxableRevenue float64 `json:"MaxTaxBaseNonTaxableRevenue"`
	MaxTaxNonTaxableAmount      float64 `json:"MaxTaxNonTaxableAmount"`
	MaxTaxNonTaxableRevenue     float64 `json:"MaxTaxNonTaxableRevenue"`
	MinTaxBase                  float64 `json:"MinTaxBase"`
	MinTaxBaseNonTaxableRevenue float64 `json:"MinTaxBaseNonTaxableRevenue"`
	Round                       string  `json:"Round"`
	Tax                         float64 `json:"Tax"`
	TaxAuthID                   string  `json:"TaxAuthID"`
	TaxBase                     float64 `json:"TaxBase"`
	TaxCat                      string  `json:"TaxCat"`
	TaxRate                     float64 `json:"TaxRate"`
	TaxSource                   string  `json:"TaxSource"`
	TaxType                     string  `json:"TaxType"`
	Tier                        int     `json:"Tier"`
	UnitBase                    float64 `json:"UnitBase"`
}

// ItemMessage reports an item-level rejection with no tax computation.
// These are surfaced to the caller but not persisted.
type ItemMessage struct {
	LineNumber     string `json:"LineNumber"`
	ResponseCode   string `json:"ResponseCode"`
	Message        string `json:"Message"`
	ClientTracking string `json:"ClientTracking"`
}

var ErrMissingTransID = errors.New("suretax: response has no transaction id")

// xmlString matches the SOAP-era wrapper: an XML document whose single
// text node is itself a JSON document.
type xmlString struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// DecodeResponseBody decodes a SureTax response body. The wire format is
// XML wrapping JSON; previously stored payloads may already be bare JSON,
// so both are accepted.
func DecodeResponseBody(body []byte) (*ResponseEnvelope, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("suretax: empty response body")
	}

	raw := trimmed
	if strings.HasPrefix(trimmed, "<") {
		var wrapper xmlString
		if err := xml.Unmarshal([]byte(trimmed), &wrapper); err != nil {
			return nil, fmt.Errorf("suretax: decode xml wrapper: %w", err)
		}
		raw = wrapper.Text
	}

	var envelope ResponseEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("suretax: decode response json: %w", err)
	}
	return &envelope, nil
}

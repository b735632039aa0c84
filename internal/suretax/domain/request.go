package domain

import "github.com/evertel/billrun/internal/address"

// Request is the envelope posted to the SureTax PostRequest endpoint.
// Field names are the agency's wire contract; do not rename.
type Request struct {
	ClientNumber      string  `json:"ClientNumber"`
	ValidationKey     string  `json:"ValidationKey"`
	BusinessUnit      string  `json:"BusinessUnit"`
	DataYear          string  `json:"DataYear"`
	DataMonth         string  `json:"DataMonth"`
	CmplDataYear      string  `json:"CmplDataYear"`
	CmplDataMonth     string  `json:"CmplDataMonth"`
	TotalRevenue      float64 `json:"TotalRevenue"`
	ClientTracking    string  `json:"ClientTracking"`
	IndustryExemption string  `json:"IndustryExemption"`
	ResponseType      string  `json:"ResponseType"`
	ResponseGroup     string  `json:"ResponseGroup"`
	ReturnFileCode    string  `json:"ReturnFileCode"`
	STAN              string  `json:"STAN"`
	MasterTransID     string  `json:"MasterTransID"`
	ItemList          []Item  `json:"ItemList"`
}

// Item is the agency-facing projection of one billing line.
type Item struct {
	LineNumber           string          `json:"LineNumber"`
	InvoiceNumber        string          `json:"InvoiceNumber"`
	CustomerNumber       string          `json:"CustomerNumber"`
	Revenue              float64         `json:"Revenue"`
	Units                int             `json:"Units"`
	UnitType             string          `json:"UnitType"`
	Seconds              string          `json:"Seconds"`
	TaxSitusRule         string          `json:"TaxSitusRule"`
	TransTypeCode        string          `json:"TransTypeCode"`
	SalesTypeCode        string          `json:"SalesTypeCode"`
	RegulatoryCode       string          `json:"RegulatoryCode"`
	TransDate            string          `json:"TransDate"`
	Zipcode              string          `json:"Zipcode"`
	Plus4                string          `json:"Plus4"`
	P2PZipcode           string          `json:"P2PZipcode"`
	P2PPlus4             string          `json:"P2PPlus4"`
	TaxExemptionCodeList []string        `json:"TaxExemptionCodeList"`
	TaxIncludedCode      string          `json:"TaxIncludedCode"`
	BillingAddress       address.Address `json:"BillingAddress"`
}

// CancelRequest voids a previously posted transaction.
type CancelRequest struct {
	ClientNumber   string `json:"ClientNumber"`
	ValidationKey  string `json:"ValidationKey"`
	TransID        int64  `json:"TransId"`
	ClientTracking string `json:"ClientTracking"`
}

// FinalizeRequest marks a master transaction as final.
type FinalizeRequest struct {
	ClientNumber   string `json:"ClientNumber"`
	ValidationKey  string `json:"ValidationKey"`
	MasterTransID  int64  `json:"MasterTransID"`
	ClientTracking string `json:"ClientTracking"`
}

// AdjustmentRequest corrects tax on a previously posted transaction.
type AdjustmentRequest struct {
	ClientNumber   string `json:"ClientNumber"`
	ValidationKey  string `json:"ValidationKey"`
	BusinessUnit   string `json:"BusinessUnit"`
	DataYear       string `json:"DataYear"`
	DataMonth      string `json:"DataMonth"`
	CmplDataYear   string `json:"CmplDataYear"`
	CmplDataMonth  string `json:"CmplDataMonth"`
	ClientTracking string `json:"ClientTracking"`
	ResponseType   string `json:"ResponseType"`
	ResponseGroup  string `json:"ResponseGroup"`
	STAN           string `json:"STAN"`
	MasterTransID  string `json:"MasterTransID"`
	ItemList       []Item `json:"TaxAdjustmentItemList"`
}

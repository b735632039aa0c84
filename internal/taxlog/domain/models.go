package domain

import "time"

// TransactionLog is one row per SureTax submission, keyed by the agency's
// transaction identifier (a natural key, never generated locally).
type TransactionLog struct {
	TransactionID  int64   `gorm:"column:transaction_id;primaryKey"`
	BusinessUnit   string  `gorm:"column:business_unit"`
	ClientNumber   string  `gorm:"column:client_number"`
	ClientTracking string  `gorm:"column:client_tracking"`
	DataMonth      string  `gorm:"column:data_month"`
	DataYear       string  `gorm:"column:data_year"`
	ResponseCode   string  `gorm:"column:response_code"`
	DocumentID     *string `gorm:"column:document_id"`
}

func (TransactionLog) TableName() string { return "suretax_transaction_log" }

// ItemLog is one row per billed line within a transaction. The surrogate
// key is generated at insert time; invoice/customer/line context is
// propagated down from the enclosing response group.
type ItemLog struct {
	ItemLogID               int64   `gorm:"column:suretax_item_log_id;primaryKey"`
	InvoiceNumber           string  `gorm:"column:invoice_number"`
	ItemID                  string  `gorm:"column:item_id"`
	LineNumber              string  `gorm:"column:line_number"`
	CustomerNumber          string  `gorm:"column:customer_number"`
	ServiceDescription      string  `gorm:"column:service_description"`
	ServiceGroupDescription string  `gorm:"column:service_group_description"`
	Revenue                 float64 `gorm:"column:revenue"`
	Fee                     float64 `gorm:"column:fee"`
	Tax                     float64 `gorm:"column:tax"`
	TaxOnTax                float64 `gorm:"column:tax_on_tax"`
	TransactionID           int64   `gorm:"column:transaction_id"`
	TransactionTypeCd       string  `gorm:"column:transaction_type_cd"`
	Units                   int     `gorm:"column:units"`
	Geocode                 string  `gorm:"column:geocode"`
	CityName                string  `gorm:"column:city_nm"`
	CountyName              string  `gorm:"column:county_nm"`
	StateCd                 string  `gorm:"column:state_cd"`
	ZipCode                 string  `gorm:"column:zip_code"`
	Plus4                   string  `gorm:"column:plus4"`
	ProductGroup            string  `gorm:"column:product_group"`
	ProductItem             string  `gorm:"column:product_item"`
}

func (ItemLog) TableName() string { return "suretax_item_log" }

// TaxLog is one row per taxing-authority line within an item.
type TaxLog struct {
	TaxLogID         int64   `gorm:"column:suretax_tax_log_id;primaryKey"`
	ItemLogID        int64   `gorm:"column:suretax_item_log_id"`
	TaxID            string  `gorm:"column:tax_id"`
	DetailedTaxDesc  string  `gorm:"column:detailed_tax_desc"`
	FeeRate          float64 `gorm:"column:fee_rate"`
	PercentTaxable   float64 `gorm:"column:percent_taxable"`
	TaxAmt           float64 `gorm:"column:tax_amt"`
	TaxAuthorityName string  `gorm:"column:tax_authority_nm"`
	TaxAuthorityType string  `gorm:"column:tax_authority_type"`
	TaxCat           string  `gorm:"column:tax_cat"`
	TaxRate          float64 `gorm:"column:tax_rate"`
	TaxType          string  `gorm:"column:tax_type"`
	TaxTypeDesc      string  `gorm:"column:tax_type_desc"`
	TaxOnTaxAmt      float64 `gorm:"column:tax_on_tax_amt"`
	Tier             int     `gorm:"column:tier"`
}

func (TaxLog) TableName() string { return "suretax_tax_log" }

// TaxCalcLog is one row per calculation tier under a tax line; it
// references its TaxLog's surrogate key.
type TaxCalcLog struct {
	TaxLogID                    int64   `gorm:"column:suretax_tax_log_id"`
	LogID                       string  `gorm:"column:log_id"`
	MaxTax                      float64 `gorm:"column:max_tax"`
	MaxTaxBase                  float64 `gorm:"column:max_tax_base"`
	MaxTaxBaseNonTaxableRevenue float64 `gorm:"column:max_tax_base_non_taxable_revenue"`
	MaxTaxNonTaxableAmt         float64 `gorm:"column:max_tax_non_taxable_amt"`
	MaxTaxNonTaxableRevenue     float64 `gorm:"column:max_tax_non_taxable_revenue"`
	MinTaxBase                  float64 `gorm:"column:min_tax_base"`
	MinTaxBaseNonTaxableRevenue float64 `gorm:"column:min_tax_base_non_taxable_revenue"`
	Round                       string  `gorm:"column:round"`
	Tax                         float64 `gorm:"column:tax"`
	TaxAuthID                   string  `gorm:"column:tax_auth_id"`
	TaxBase                     float64 `gorm:"column:tax_base"`
	TaxCat                      string  `gorm:"column:tax_cat"`
	TaxRate                     float64 `gorm:"column:tax_rate"`
	TaxSource                   string  `gorm:"column:tax_source"`
	TaxType                     string  `gorm:"column:tax_type"`
	Tier                        int     `gorm:"column:tier"`
	UnitBase                    float64 `gorm:"column:unit_base"`
}

func (TaxCalcLog) TableName() string { return "suretax_tax_calc_log" }

// PostResponse keeps the raw response payload for a transaction so a
// reconciliation pass can be re-driven later without calling the service.
type PostResponse struct {
	TransactionID int64     `gorm:"column:transaction_id;primaryKey"`
	Created       time.Time `gorm:"column:created"`
	ResponseBody  string    `gorm:"column:response_body"`
}

func (PostResponse) TableName() string { return "suretax_post_response" }

package normalizer

import "strings"

// RawCandidate is the untyped shape the extraction oracle proposes for one
// requirement. Every field is optional and possibly malformed; nothing here
// flows past Normalize without validation.
type RawCandidate struct {
	Title                string        `json:"title"`
	Category             string        `json:"category"`
	Description          string        `json:"description"`
	PlainLanguageSummary string        `json:"plain_language_summary"`
	OriginalText         string        `json:"original_text"`
	DocumentReference    string        `json:"document_reference"`
	Deadline             *RawDeadline  `json:"deadline"`
	Threshold            *RawThreshold `json:"threshold"`
	Severity             string        `json:"severity"`
	CurePeriodDays       int           `json:"cure_period_days"`
}

// Empty reports whether the candidate carries neither a title nor a
// description and therefore cannot be turned into a requirement.
func (c RawCandidate) Empty() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Description) == ""
}

// RawDeadline is the oracle's guess at a deadline.
type RawDeadline struct {
	Description        string `json:"description"`
	Frequency          string `json:"frequency"`
	DaysAfterPeriodEnd int    `json:"days_after_period_end"`
	DayOfMonth         int    `json:"day_of_month"`
}

// RawThreshold is the oracle's guess at a covenant threshold.
type RawThreshold struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

// RawLoanInfo is loan-level metadata the oracle may find in a chunk.
type RawLoanInfo struct {
	BorrowerName    string  `json:"borrower_name"`
	LenderName      string  `json:"lender_name"`
	PropertyName    string  `json:"property_name"`
	LoanAmount      float64 `json:"loan_amount"`
	OriginationDate string  `json:"origination_date"`
	MaturityDate    string  `json:"maturity_date"`
}

// Package models defines the domain models for the crawler core.
// A Page is the unit of work flowing from a domain pipeline to the sink;
// its serialized form (one JSON object per line) is the only artifact that
// crosses the process boundary.
package models

import (
	"time"
)

// FetchSource identifies which acquisition tier produced a page's content.
type FetchSource string

const (
	// SourceLive is a direct HTTP fetch (tier A).
	SourceLive FetchSource = "live"
	// SourceArchiveIndex is a record resolved through the web archive's
	// CDX index (tier B).
	SourceArchiveIndex FetchSource = "archive_index"
	// SourceArchiveLive is a live snapshot served by the archive (tier C).
	SourceArchiveLive FetchSource = "archive_live"
	// SourceRender is content produced by a headless browser (tier D).
	SourceRender FetchSource = "render"
	// SourceFailed marks a fetch-failure record: every tier was exhausted.
	SourceFailed FetchSource = "failed"
)

// EntityKind identifies a class of extracted entity.
type EntityKind string

const (
	KindEmail     EntityKind = "EMAIL"
	KindPhoneIntl EntityKind = "PHONE_INTL"
	KindPhoneUS   EntityKind = "PHONE_US"
	KindPhoneUK   EntityKind = "PHONE_UK"
	KindPhoneEU   EntityKind = "PHONE_EU"
	KindLEI       EntityKind = "LEI"
	KindIBAN      EntityKind = "IBAN"
	KindSWIFT     EntityKind = "SWIFT"
	KindVAT       EntityKind = "VAT"
	KindIMO       EntityKind = "IMO"
	KindMMSI      EntityKind = "MMSI"
	KindISIN      EntityKind = "ISIN"
	KindDUNS      EntityKind = "DUNS"
	KindUKCRN     EntityKind = "UK_CRN"
	KindDEHRB     EntityKind = "DE_HRB"
	KindFRSiren   EntityKind = "FR_SIREN"
	KindBTC       EntityKind = "BTC"
	KindBTCBech32 EntityKind = "BTC_BECH32"
	KindETH       EntityKind = "ETH"
	KindLTC       EntityKind = "LTC"
	KindXRP       EntityKind = "XRP"
	KindXMR       EntityKind = "XMR"
	KindPerson    EntityKind = "PERSON"
	KindCompany   EntityKind = "COMPANY"
)

// TripwireCategory classifies a risk term hit.
type TripwireCategory string

const (
	TripwireSanctions       TripwireCategory = "SANCTIONS"
	TripwirePEP             TripwireCategory = "PEP"
	TripwireFraud           TripwireCategory = "FRAUD"
	TripwireMoneyLaundering TripwireCategory = "MONEY_LAUNDERING"
	TripwireCorruption      TripwireCategory = "CORRUPTION"
	TripwireLitigation      TripwireCategory = "LITIGATION"
)

// TripwireHit records a single risk-dictionary match in page text.
// Span is the [start, end) byte offset of the match in the scanned text.
type TripwireHit struct {
	Category TripwireCategory `json:"category"`
	Term     string           `json:"term"`
	Span     [2]int           `json:"span"`
}

// Page is the result of a successful fetch plus extraction for one URL.
// Entity lists are deduplicated and preserve first-seen order. Outlinks
// exclude URLs on the page's own registrable domain.
type Page struct {
	URL           string                  `json:"url"`
	Depth         int                     `json:"depth"`
	Source        FetchSource             `json:"source"`
	HTTPStatus    int                     `json:"http_status"`
	ContentType   string                  `json:"content_type,omitempty"`
	Len           int                     `json:"len"`
	Text          string                  `json:"text,omitempty"`
	InternalLinks int                     `json:"internal_links"`
	Outlinks      []string                `json:"outlinks,omitempty"`
	Entities      map[EntityKind][]string `json:"entities"`
	Tripwires     []TripwireHit           `json:"tripwires,omitempty"`
	Partial       bool                    `json:"partial,omitempty"`
	CrawledAt     time.Time               `json:"crawled_at"`
}

// CompletionOutcome classifies how a domain pipeline finished.
type CompletionOutcome string

const (
	OutcomeOK                CompletionOutcome = "ok"
	OutcomeDomainUnreachable CompletionOutcome = "domain_unreachable"
	OutcomeRobotsDenied      CompletionOutcome = "robots_denied"
	OutcomePartialTimeout    CompletionOutcome = "partial_timeout"
	OutcomeInternalError     CompletionOutcome = "internal_error"
)

// Completion summarizes one domain pipeline run. Exactly one is logged
// per seed.
type Completion struct {
	Seed     string            `json:"seed"`
	Outcome  CompletionOutcome `json:"outcome"`
	Pages    int               `json:"pages"`
	Failures int               `json:"failures"`
	Duration time.Duration     `json:"duration"`
	Err      error             `json:"-"`
}

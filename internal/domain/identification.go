package domain

// FingerprintConfidenceGate is the minimum acceptable fingerprint score
// before a match is trusted as final. The gate is inclusive: a score of
// exactly this value is accepted.
const FingerprintConfidenceGate = 0.30

// OutcomeKind tags the variant of an IdentificationOutcome
type OutcomeKind string

const (
	OutcomeFingerprint    OutcomeKind = "fingerprint"
	OutcomeRecognitionAPI OutcomeKind = "recognition_api"
	OutcomeCatalog        OutcomeKind = "catalog"
	OutcomeNoMatch        OutcomeKind = "no_match"
)

// FingerprintMatch is a single ranked candidate from the fingerprinting
// service.
type FingerprintMatch struct {
	Score       float64
	RecordingID string
	Title       string
	Artist      string
}

// CatalogTrack is one entry from a catalog keyword search
type CatalogTrack struct {
	Artist string
	Title  string
	Link   string
}

// IdentificationOutcome is the tagged result of the identification chain.
// Exactly the fields of the tagged variant are populated.
type IdentificationOutcome struct {
	Kind OutcomeKind

	// OutcomeFingerprint
	Fingerprint *FingerprintMatch
	Link        string

	// OutcomeRecognitionAPI
	Artist string
	Title  string

	// OutcomeCatalog
	Tracks []CatalogTrack
}

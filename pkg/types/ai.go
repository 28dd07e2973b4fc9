package types

// Classification is the image classification endpoint's response.
type Classification struct {
	IsWasteRelated  bool     `json:"isWasteRelated"`
	TopCategories   []string `json:"topCategories"`
	Confidence      float64  `json:"confidence"`
	Description     string   `json:"description"`
	RejectionReason *string  `json:"rejectionReason,omitempty"`
}

type VerificationRequest struct {
	OriginalImage string `json:"originalImage"`
	ProofImage    string `json:"proofImage"`
	Category      string `json:"category"`
	Description   string `json:"description"`
}

type VerificationResult struct {
	IsResolved bool    `json:"isResolved"`
	Message    *string `json:"message,omitempty"`
}

type Transcription struct {
	Transcript string `json:"transcript"`
}

// Place is a reverse geocoding result with defaults already applied.
type Place struct {
	Address  string `json:"address"`
	Locality string `json:"locality"`
	City     string `json:"city"`
}

package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	NanoidSize     = 24
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// ReportCode renders a report sequence number as the human-readable code
// shown to citizens, e.g. WR-000042.
func ReportCode(seq int64) string {
	return fmt.Sprintf("WR-%06d", seq)
}

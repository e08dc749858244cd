package audio

import (
	"fmt"
	"strings"
)

// Quality is the data-quality flag assigned at decode time and stored with
// every analysis run. Garbage runs are kept but excluded from calibration.
type Quality string

const (
	QualityOK      Quality = "ok"
	QualitySuspect Quality = "suspect"
	QualityGarbage Quality = "garbage"
)

// ParseQuality validates a stored quality label.
func ParseQuality(value string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(value))); q {
	case QualityOK, QualitySuspect, QualityGarbage:
		return q, nil
	default:
		return "", fmt.Errorf("unknown data quality %q", value)
	}
}

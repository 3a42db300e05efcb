package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report id strategies accepted by IDGeneratorFor.
const (
	IDStrategyUUID   = "uuid"
	IDStrategyMillis = "millis"
)

// UUIDGenerator returns ids of the form report-<uuid>.
func UUIDGenerator() func() string {
	return func() string {
		return "report-" + uuid.NewString()
	}
}

// MillisGenerator returns ids of the form report-<epoch millis>. Two reports
// assembled within the same millisecond get the same id.
func MillisGenerator(now func() time.Time) func() string {
	if now == nil {
		now = time.Now
	}
	return func() string {
		return "report-" + strconv.FormatInt(now().UnixMilli(), 10)
	}
}

// IDGeneratorFor maps a configured strategy name to a generator.
func IDGeneratorFor(strategy string) (func() string, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", IDStrategyUUID:
		return UUIDGenerator(), nil
	case IDStrategyMillis:
		return MillisGenerator(nil), nil
	default:
		return nil, fmt.Errorf("unknown report id strategy %q (want %s or %s)", strategy, IDStrategyUUID, IDStrategyMillis)
	}
}

package output

import (
	"encoding/json"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

// ToJSON serializes the processing log.
func ToJSON(log *models.ProcessingLog, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(log, "", "  ")
	}
	return json.Marshal(log)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// batchFile is the on-disk shape `batch <path>` reads: a JSON object
// whose "steps" array holds step objects, each mirroring one
// domain.Request's command/positionals/flags/session fields.
type batchFile struct {
	Steps []interface{} `json:"steps"`
}

// loadBatchSteps reads path (or stdin, for "-") and returns its steps
// array ready to hand to the daemon's `batch` command verbatim.
func loadBatchSteps(path string) ([]interface{}, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var bf batchFile
	if err := json.NewDecoder(r).Decode(&bf); err != nil {
		return nil, fmt.Errorf("decode batch steps: %w", err)
	}
	if len(bf.Steps) == 0 {
		return nil, fmt.Errorf("batch file has no steps")
	}
	return bf.Steps, nil
}

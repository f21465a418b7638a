package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
)

var ErrNotFound = errors.New("flag not found")

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults are the values flags take before anyone has written them.
var Defaults = map[string]bool{
	constants.FlagDirectSwapEnabled: true,
}

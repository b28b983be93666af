package assets

import _ "embed"

// ModelsData holds the built-in model catalog synced into the models table at
// startup.
//
//go:embed models.json
var ModelsData []byte

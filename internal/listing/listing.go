// Package listing holds the record type written to the output file.
package listing

import (
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Record is one job listing extracted from the rendered page.
type Record struct {
	IDURL string `json:"id_url" description:"Value of the listing's identifying attribute on the source page"`
	Title string `json:"title" description:"Listing title with the trailing gender marker removed"`
}

// Schema describes the output file: a JSON array of Record.
func Schema() (*jsonschema.Definition, error) {
	item, err := jsonschema.GenerateSchemaForType(Record{})
	if err != nil {
		return nil, fmt.Errorf("generate record schema: %w", err)
	}

	return &jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: "Listings extracted in document order",
		Items:       item,
	}, nil
}

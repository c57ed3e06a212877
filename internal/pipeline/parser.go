package pipeline

import (
	"context"

	"github.com/sells-group/lasqc/internal/las"
	"github.com/sells-group/lasqc/internal/model"
)

// Parser turns raw file content into a dataset plus structural warnings.
type Parser interface {
	Parse(ctx context.Context, content []byte) (*model.Dataset, []string, error)
}

// LASParser parses LAS 2.0 content.
type LASParser struct{}

// Parse implements Parser.
func (LASParser) Parse(_ context.Context, content []byte) (*model.Dataset, []string, error) {
	return las.Parse(content)
}
